package cues

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-caddie/core/cues"

var logger = otelslog.NewLogger(scopeName)
