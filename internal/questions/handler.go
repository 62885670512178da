package questions

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"studyassist/internal/cache"
	"studyassist/internal/generation"
	"studyassist/internal/logging"
	"studyassist/internal/notify"
	"studyassist/internal/storage"
)

// Event is the payload the data API passes to the get-questions function.
type Event struct {
	Arguments Arguments `json:"arguments"`
}

type Arguments struct {
	LocalPath []string `json:"localPath"`
}

type ObjectSource interface {
	Presign(ctx context.Context, key string) (string, error)
	FetchText(ctx context.Context, url string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, k cache.Key) (json.RawMessage, bool, error)
	Put(ctx context.Context, k cache.Key, body json.RawMessage) error
}

type Notifier interface {
	Publish(ctx context.Context, o notify.Outcome) error
}

type Options struct {
	Prompt   string
	Filename string
	// GeneratorID scopes cached bodies to the backend that produced them.
	GeneratorID string
	// Cache and Notifier are optional.
	Cache    Cache
	Notifier Notifier
	Logger   *zap.Logger
}

type Handler struct {
	source   ObjectSource
	gen      generation.Generator
	prompt   string
	filename string
	genID    string
	cache    Cache
	notifier Notifier
	log      *zap.Logger
}

func NewHandler(src ObjectSource, gen generation.Generator, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		source:   src,
		gen:      gen,
		prompt:   opts.Prompt,
		filename: opts.Filename,
		genID:    opts.GeneratorID,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		log:      log,
	}
}

// Handle is the Lambda entrypoint.
func (h *Handler) Handle(ctx context.Context, ev Event) (json.RawMessage, error) {
	return h.Generate(ctx, ev.Arguments.LocalPath)
}

// Generate fetches every path in order, then sends the encoded batch to the
// generator and returns its JSON body unchanged. The first failing path
// aborts the call before the generator is reached.
func (h *Handler) Generate(ctx context.Context, paths []string) (json.RawMessage, error) {
	log := logging.ForInvocation(ctx, h.log).With(zap.Int("files", len(paths)))

	out, cached, err := h.generate(ctx, log, paths)
	h.publish(ctx, log, paths, cached, err)
	return out, err
}

func (h *Handler) generate(ctx context.Context, log *zap.Logger, paths []string) (json.RawMessage, bool, error) {
	if len(paths) == 0 {
		log.Error("no file paths in request")
		return nil, false, ErrNoPaths
	}

	batch, err := h.encodeAll(ctx, paths)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			log.Error("error processing file", zap.String("path", pe.Path), zap.String("stage", pe.Stage), zap.Error(pe.Err))
		}
		return nil, false, err
	}

	req := generation.Request{
		Prompt:            h.prompt,
		Filename:          h.filename,
		FileContentBase64: generation.JoinContent(batch),
	}
	key := cache.Key{Generator: h.genID, Prompt: req.Prompt, Filename: req.Filename, Content: req.FileContentBase64}

	if h.cache != nil {
		body, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			log.Warn("question cache lookup failed", zap.Error(err))
		} else if ok {
			log.Info("questions served from cache")
			return body, true, nil
		}
	}

	body, err := h.gen.Generate(ctx, req)
	if err != nil {
		log.Error("error generating questions", zap.Error(err))
		return nil, false, err
	}
	log.Info("questions generated", zap.Int("response_bytes", len(body)))

	if h.cache != nil {
		if err := h.cache.Put(ctx, key, body); err != nil {
			log.Warn("question cache store failed", zap.Error(err))
		}
	}
	return body, false, nil
}

// encodeAll returns one base64 entry per path, in input order.
func (h *Handler) encodeAll(ctx context.Context, paths []string) ([]string, error) {
	batch := make([]string, 0, len(paths))
	for _, p := range paths {
		url, err := h.source.Presign(ctx, p)
		if err != nil {
			return batch, &PathError{Path: p, Stage: StagePresign, Err: err}
		}

		text, err := h.source.FetchText(ctx, url)
		if err != nil {
			stage := StageFetch
			if errors.Is(err, storage.ErrNotText) {
				stage = StageDecode
			}
			return batch, &PathError{Path: p, Stage: stage, Err: err}
		}

		batch = append(batch, generation.EncodeText(text))
	}
	return batch, nil
}

func (h *Handler) publish(ctx context.Context, log *zap.Logger, paths []string, cached bool, err error) {
	if h.notifier == nil {
		return
	}
	o := notify.Outcome{Status: notify.StatusSucceeded, Paths: paths, Cached: cached}
	if err != nil {
		o.Status = notify.StatusFailed
		o.Error = err.Error()
		var pe *PathError
		if errors.As(err, &pe) {
			o.FailedPath = pe.Path
		}
	}
	if perr := h.notifier.Publish(ctx, o); perr != nil {
		log.Warn("outcome publish failed", zap.Error(perr))
	}
}
