// Package logging provides structured logging on top of log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "text"})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithBidID(ctx, bid.ID)
//	logger.InfoContext(ctx, "bid evaluated", "risk_level", "High")
//
// Library packages accept a *slog.Logger and fall back to
// slog.Default().With("component", name) when none is supplied, so
// SetDefault is enough to route every component through one handler.
package logging
