package main

import (
	"gradescope-backend/cmd/gradescope-cli/commands"
	"gradescope-backend/lib/serviceutil"
	"gradescope-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.SetupFromEnv(ctx, "gradescope-cli")
	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
