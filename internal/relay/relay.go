// Package relay forwards analysis requests to the report generator and
// delivers the result either as one document or as an incremental event
// stream. It holds no per-request state and is safe for concurrent use.
package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/models"
)

const DefaultTimeout = 60 * time.Second

// Generator produces report text for an analysis input. GenerateStream calls
// onChunk sequentially, in upstream order, and must stop and release the
// upstream call as soon as onChunk returns an error.
type Generator interface {
	Generate(ctx context.Context, in models.AnalysisInput) (string, error)
	GenerateStream(ctx context.Context, in models.AnalysisInput, onChunk func(string) error) error
}

// EmitFunc writes one event to the client. A non-nil error means the client is
// gone and nothing more should be written.
type EmitFunc func(StreamEvent) error

var errStreamClosed = errors.New("relay: chunk after stream end")

type Relay struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a relay. A nil generator is allowed: every request then fails
// with KindConfigurationMissing.
func New(gen Generator, timeout time.Duration, logger *zap.Logger) *Relay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{gen: gen, timeout: timeout, logger: logger}
}

// Ready reports a ConfigurationMissing error when no generator is configured.
func (r *Relay) Ready() error {
	if r.gen == nil {
		return configurationMissing()
	}
	return nil
}

func (r *Relay) check(in models.AnalysisInput) error {
	if err := in.Validate(); err != nil {
		return invalidRequest(err)
	}
	if r.gen == nil {
		return configurationMissing()
	}
	return nil
}

// Analyze runs one synchronous generation and returns the parsed report.
func (r *Relay) Analyze(ctx context.Context, in models.AnalysisInput) (*models.ReachReport, error) {
	if err := r.check(in); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, in)
	if err != nil {
		r.logger.Warn("generation failed", zap.String("url", in.URL), zap.Error(err))
		return nil, upstreamUnavailable(err, r.timeout)
	}
	return parse(text)
}

// Stream runs a streaming generation. Every fragment is emitted as a chunk
// event as soon as it arrives; once the upstream stream ends exactly one
// terminal event is emitted and returned. If emit fails the upstream call is
// abandoned, nothing further is written, and the emit error is returned.
func (r *Relay) Stream(ctx context.Context, in models.AnalysisInput, emit EmitFunc) (StreamEvent, error) {
	if err := r.check(in); err != nil {
		ev := ErrorEvent(err.Error())
		return ev, emit(ev)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		acc     strings.Builder
		closed  bool
		sinkErr error
		chunks  int
	)
	genErr := r.gen.GenerateStream(ctx, in, func(fragment string) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return errStreamClosed
		}
		if sinkErr != nil {
			return sinkErr
		}
		if fragment == "" {
			return nil
		}
		acc.WriteString(fragment)
		chunks++
		if err := emit(ChunkEvent(fragment)); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})

	mu.Lock()
	closed = true
	text := acc.String()
	clientErr := sinkErr
	mu.Unlock()

	if clientErr != nil {
		r.logger.Info("client left mid-stream", zap.String("url", in.URL), zap.Int("chunks", chunks))
		return StreamEvent{}, clientErr
	}

	var terminal StreamEvent
	if genErr != nil {
		r.logger.Warn("streaming generation failed", zap.String("url", in.URL), zap.Int("chunks", chunks), zap.Error(genErr))
		terminal = ErrorEvent(upstreamUnavailable(genErr, r.timeout).Error())
	} else if report, err := parse(text); err != nil {
		r.logger.Warn("stream produced no usable report", zap.String("url", in.URL), zap.Int("chunks", chunks), zap.Error(err))
		terminal = ErrorEvent(err.Error())
	} else {
		terminal = DoneEvent(report)
	}
	return terminal, emit(terminal)
}

func parse(text string) (*models.ReachReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, upstreamEmpty()
	}
	report, err := models.ParseReport(text)
	if errors.Is(err, models.ErrEmptyReport) {
		return nil, upstreamEmpty()
	}
	if err != nil {
		return nil, upstreamMalformed(err)
	}
	return report, nil
}
