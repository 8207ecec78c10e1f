package lexgo

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// limitedWriter throttles writes through a token bucket, one token per
// byte. Writes larger than the burst are split into burst-sized chunks.
type limitedWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

// newLimitedWriter wraps w with a bytesPerSec throttle. A non-positive
// rate returns w unchanged.
func newLimitedWriter(ctx context.Context, w io.Writer, bytesPerSec int) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	return &limitedWriter{
		ctx:     ctx,
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		chunk := p
		if burst := lw.limiter.Burst(); len(chunk) > burst {
			chunk = chunk[:burst]
		}
		if err := lw.limiter.WaitN(lw.ctx, len(chunk)); err != nil {
			return written, err
		}
		n, err := lw.w.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[len(chunk):]
	}
	return written, nil
}

// countingWriter tracks the number of bytes passed through, for flush
// and merge size metrics.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
