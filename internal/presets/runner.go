package presets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// FrameReport is the outcome of one scenario frame.
type FrameReport struct {
	Index    int              `json:"index"`
	Context  string           `json:"context"`
	Mode     string           `json:"mode"`
	Aborted  bool             `json:"aborted"`
	FrameTag int32            `json:"frameTag"`
	Values   map[string]int32 `json:"values,omitempty"`
	Stream   int              `json:"streamBytes"`
}

// Runner plays scenarios against a session.
type Runner struct {
	sess   *session.Session
	store  *Store
	logger *slog.Logger
}

// NewRunner creates a runner. store may be nil when scenarios carry all the
// presets they use.
func NewRunner(sess *session.Session, store *Store, logger *slog.Logger) *Runner {
	return &Runner{sess: sess, store: store, logger: logger}
}

func (r *Runner) preset(sc *Scenario, name string) (Preset, bool) {
	for _, p := range sc.Presets {
		if p.Name == name {
			return p, true
		}
	}
	if r.store != nil {
		return r.store.Get(name)
	}
	return Preset{}, false
}

// Run opens the scenario's contexts, plays every frame in order and closes
// the contexts again. It stops at the first failing frame or when ctx ends,
// returning the reports of the frames played so far.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]FrameReport, error) {
	for _, c := range sc.Contexts {
		kind, _ := bufctrl.ParseKind(c.Kind)
		codec, _ := bufctrl.ParseCodec(c.Codec)
		r.sess.CreateWithID(c.Name, kind, codec)
	}
	defer func() {
		for _, c := range sc.Contexts {
			if err := r.sess.Delete(c.Name); err != nil {
				r.logger.Warn("scenario context cleanup failed", "context", c.Name, "error", err)
			}
		}
	}()

	streams := make(map[string][]byte)
	reports := make([]FrameReport, 0, len(sc.Frames))
	for i, f := range sc.Frames {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, stream, err := r.frame(sc, i, f, streams)
		if err != nil {
			return reports, fmt.Errorf("frame %d: %w", i, err)
		}
		if stream != nil {
			streams[f.Context] = stream
		}
		reports = append(reports, rep)
	}
	r.logger.Info("scenario finished", "scenario", sc.Name, "frames", len(reports))
	return reports, nil
}

func (r *Runner) frame(sc *Scenario, i int, f FrameSpec, streams map[string][]byte) (FrameReport, []byte, error) {
	mode, _ := bufctrl.ParseMode(f.Mode)
	rep := FrameReport{Index: i, Context: f.Context, Mode: mode.String(), Aborted: f.Abort}

	var settings []session.Setting
	if f.Preset != "" {
		p, ok := r.preset(sc, f.Preset)
		if !ok {
			return rep, nil, fmt.Errorf("unknown preset %q", f.Preset)
		}
		s, err := p.Settings()
		if err != nil {
			return rep, nil, err
		}
		settings = append(settings, s...)
	}
	own, err := resolve(f.Controls)
	if err != nil {
		return rep, nil, err
	}
	settings = append(settings, own...)
	if err := r.sess.Set(f.Context, settings...); err != nil {
		return rep, nil, err
	}

	tag, err := r.sess.Submit(f.Context, mode)
	if err != nil {
		return rep, nil, err
	}
	rep.FrameTag = tag
	if f.Abort {
		return rep, nil, r.sess.Abort(f.Context)
	}

	payload := []byte(f.Payload)
	if f.StreamFrom != "" {
		payload = streams[f.StreamFrom]
	}
	frame, err := r.sess.Complete(f.Context, payload)
	if err != nil {
		return rep, nil, err
	}
	rep.FrameTag = frame.FrameTag
	rep.Stream = len(frame.Stream)
	rep.Values = make(map[string]int32, len(frame.Values))
	for id, v := range frame.Values {
		rep.Values[id.String()] = v
	}
	r.logger.Debug("scenario frame done", "index", i, "context", f.Context, "tag", rep.FrameTag)
	return rep, frame.Stream, nil
}
