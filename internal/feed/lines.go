package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// LineSource reads one feed message per line, typically from stdin.
type LineSource struct {
	r       io.Reader
	handler *Handler
	logger  *zap.Logger
}

// NewLineSource creates a LineSource over r.
func NewLineSource(r io.Reader, handler *Handler, logger *zap.Logger) *LineSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineSource{r: r, handler: handler, logger: logger.Named("feed.lines")}
}

// Run reads until EOF or ctx ends. EOF is not an error; the tracker keeps running.
func (s *LineSource) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			errc <- err
			close(lines)
		}()

		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("read feed lines: %w", err)
				}
				s.logger.Info("feed input closed")
				<-ctx.Done()
				return nil
			}
			s.handler.Handle([]byte(line))
		}
	}
}
