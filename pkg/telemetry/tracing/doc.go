// Package tracing provides OpenTelemetry tracing for bid evaluation.
//
// A bid run opens a "bid.run" span; policy checks, ratings, risk
// assessment, and ledger load/save open child spans beneath it. When
// tracing is disabled every component receives a noop tracer, and a nil
// *Tracer is also safe to call.
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
