package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyDir        = "dir"
	KeyMember     = "member"
	KeyOutput     = "output"
	KeySlides     = "slides"
	KeyFragments  = "fragments"
	KeyRebuildID  = "rebuild_id"
	KeyReason     = "reason"
	KeyDurationMS = "duration_ms"
	KeyOp         = "op"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr        { return slog.String(KeyDir, d) }
func Member(name string) slog.Attr  { return slog.String(KeyMember, name) }
func Output(p string) slog.Attr     { return slog.String(KeyOutput, p) }
func Slides(n int) slog.Attr        { return slog.Int(KeySlides, n) }
func Fragments(n int) slog.Attr     { return slog.Int(KeyFragments, n) }
func RebuildID(id string) slog.Attr { return slog.String(KeyRebuildID, id) }
func Reason(r string) slog.Attr     { return slog.String(KeyReason, r) }
func Op(op string) slog.Attr        { return slog.String(KeyOp, op) }

// Duration reports d in fractional milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d)/float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
