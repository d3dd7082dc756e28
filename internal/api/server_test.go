package api

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/mfcctl/internal/api/models"
	"github.com/smazurov/mfcctl/internal/device"
	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/internal/presets"
	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func testOptions(t *testing.T, bus *events.Bus) *Options {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctl := bufctrl.New(bufctrl.Options{Logger: logger, Observer: events.NewObserver(bus)})
	sess := session.New(session.Options{
		Controller: ctl,
		Device:     device.New(logger),
		Bus:        bus,
		Logger:     logger,
	})

	path := filepath.Join(t.TempDir(), "presets.toml")
	data := "[[presets]]\nname = \"keyframe\"\n[[presets.controls]]\ncontrol = \"force_key_frame\"\nvalue = 1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := presets.NewStore(path, bus, logger)
	if err != nil {
		t.Fatal(err)
	}
	return &Options{Session: sess, Presets: store, Bus: bus}
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *Server) {
	t.Helper()
	_, api := humatest.New(t)
	s := newServer(api, testOptions(t, events.New()))
	s.registerRoutes()
	return api, s
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", resp.Body.String(), err)
	}
	return out
}

func createContext(t *testing.T, api humatest.TestAPI, id, kind string) {
	t.Helper()
	resp := api.Post("/api/contexts", map[string]any{"id": id, "kind": kind, "codec": "h264"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create %s: %d %s", id, resp.Code, resp.Body.String())
	}
}

func TestHealthAndVersion(t *testing.T) {
	api, _ := newTestAPI(t)
	if resp := api.Get("/api/health"); resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "ok") {
		t.Errorf("health: %d %s", resp.Code, resp.Body.String())
	}
	if resp := api.Get("/api/version"); resp.Code != http.StatusOK {
		t.Errorf("version: %d", resp.Code)
	}
}

func TestDescriptors(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/api/descriptors/decoder")
	if resp.Code != http.StatusOK {
		t.Fatalf("%d %s", resp.Code, resp.Body.String())
	}
	body := decode[struct {
		Kind        string                  `json:"kind"`
		Descriptors []models.DescriptorData `json:"descriptors"`
	}](t, resp)
	if body.Kind != "decoder" || len(body.Descriptors) == 0 {
		t.Fatalf("body = %+v", body)
	}
	var tag *models.DescriptorData
	for i := range body.Descriptors {
		if body.Descriptors[i].Name == "frame_tag" {
			tag = &body.Descriptors[i]
		}
	}
	if tag == nil || tag.Field != "D_PICTURE_TAG" || tag.ReadField != "D_RET_PICTURE_TAG" || tag.Direction != "set_get" {
		t.Errorf("frame_tag descriptor = %+v", tag)
	}

	if resp := api.Get("/api/descriptors/mixer"); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown kind: %d", resp.Code)
	}
}

func TestContextLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	createContext(t, api, "enc0", "encoder")

	if resp := api.Post("/api/contexts", map[string]any{"id": "enc0", "kind": "encoder", "codec": "h264"}); resp.Code != http.StatusConflict {
		t.Errorf("duplicate create: %d", resp.Code)
	}

	resp := api.Post("/api/contexts", map[string]any{"kind": "decoder", "codec": "vp9"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.Code, resp.Body.String())
	}
	generated := decode[models.ContextData](t, resp)
	if generated.ID == "" || generated.Codec != "vp9" || generated.Encoder != nil {
		t.Errorf("generated = %+v", generated)
	}

	list := decode[struct {
		Contexts []models.ContextData `json:"contexts"`
		Count    int                  `json:"count"`
	}](t, api.Get("/api/contexts"))
	if list.Count != 2 || list.Contexts[0].ID != "enc0" {
		t.Errorf("list = %+v", list)
	}

	if resp := api.Delete("/api/contexts/enc0"); resp.Code != http.StatusNoContent {
		t.Errorf("delete: %d", resp.Code)
	}
	if resp := api.Get("/api/contexts/enc0"); resp.Code != http.StatusNotFound {
		t.Errorf("get deleted: %d", resp.Code)
	}
	if resp := api.Delete("/api/contexts/enc0"); resp.Code != http.StatusNotFound {
		t.Errorf("delete twice: %d", resp.Code)
	}
}

func TestSetControls(t *testing.T) {
	api, _ := newTestAPI(t)
	createContext(t, api, "enc0", "encoder")

	resp := api.Post("/api/contexts/enc0/controls", map[string]any{
		"controls": []map[string]any{
			{"control": "gop_size", "value": 30},
			{"control": "0xFFFFFFFF", "value": 1},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("%d %s", resp.Code, resp.Body.String())
	}
	ctx := decode[models.ContextData](t, resp)
	if len(ctx.Controls) != 1 || ctx.Controls[0].Name != "gop_size" || ctx.Controls[0].State != "pending" {
		t.Errorf("controls = %+v", ctx.Controls)
	}

	resp = api.Post("/api/contexts/enc0/controls", map[string]any{
		"controls": []map[string]any{{"control": "no_such_control", "value": 1}},
	})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("bad name: %d", resp.Code)
	}
	resp = api.Post("/api/contexts/nope/controls", map[string]any{
		"controls": []map[string]any{{"control": "gop_size", "value": 1}},
	})
	if resp.Code != http.StatusNotFound {
		t.Errorf("missing context: %d", resp.Code)
	}
}

func TestFrameCycle(t *testing.T) {
	for _, mode := range []string{"sync", "queued"} {
		t.Run(mode, func(t *testing.T) {
			api, _ := newTestAPI(t)
			createContext(t, api, "enc0", "encoder")
			createContext(t, api, "dec0", "decoder")

			api.Post("/api/contexts/enc0/controls", map[string]any{
				"controls": []map[string]any{{"control": "frame_tag", "value": 42}, {"control": "frame_type", "value": 0}},
			})
			resp := api.Post("/api/contexts/enc0/submit", map[string]any{"mode": mode})
			if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"frameTag":42`) {
				t.Fatalf("submit: %d %s", resp.Code, resp.Body.String())
			}
			if resp := api.Post("/api/contexts/enc0/submit", map[string]any{"mode": mode}); resp.Code != http.StatusConflict {
				t.Errorf("double submit: %d", resp.Code)
			}

			resp = api.Post("/api/contexts/enc0/complete", map[string]any{"payload": base64.StdEncoding.EncodeToString([]byte("picture"))})
			if resp.Code != http.StatusOK {
				t.Fatalf("complete: %d %s", resp.Code, resp.Body.String())
			}
			enc := decode[models.FrameData](t, resp)
			if enc.FrameTag != 42 || enc.Values["frame_type"] != int32(device.FrameTypeI) || len(enc.Stream) != len("picture")+2 {
				t.Errorf("encoded frame = %+v", enc)
			}

			api.Post("/api/contexts/dec0/controls", map[string]any{
				"controls": []map[string]any{{"control": "frame_tag", "value": 7}, {"control": "luma_crc", "value": 0}},
			})
			api.Post("/api/contexts/dec0/submit", map[string]any{"mode": mode})
			resp = api.Post("/api/contexts/dec0/complete", map[string]any{"payload": enc.Stream})
			dec := decode[models.FrameData](t, resp)
			if _, ok := dec.Values["luma_crc"]; dec.FrameTag != 7 || !ok {
				t.Errorf("decoded frame = %+v", dec)
			}
		})
	}
}

func TestAbortRollsBack(t *testing.T) {
	api, s := newTestAPI(t)
	createContext(t, api, "enc0", "encoder")

	api.Post("/api/contexts/enc0/presets/keyframe")
	if resp := api.Post("/api/contexts/enc0/submit", map[string]any{"mode": "sync"}); resp.Code != http.StatusOK {
		t.Fatalf("submit: %d", resp.Code)
	}
	addr, _ := bufctrl.FieldEFrameInsertion.Register()
	if got := s.sess.Device().Read(addr); got != 1 {
		t.Fatalf("insertion after submit = %d", got)
	}
	if resp := api.Post("/api/contexts/enc0/abort"); resp.Code != http.StatusNoContent {
		t.Fatalf("abort: %d %s", resp.Code, resp.Body.String())
	}
	if got := s.sess.Device().Read(addr); got != 0 {
		t.Errorf("insertion after abort = %d", got)
	}
	if resp := api.Post("/api/contexts/enc0/abort"); resp.Code != http.StatusConflict {
		t.Errorf("abort idle: %d", resp.Code)
	}
}

func TestEncoderParams(t *testing.T) {
	api, _ := newTestAPI(t)
	createContext(t, api, "enc0", "encoder")
	createContext(t, api, "dec0", "decoder")

	resp := api.Put("/api/contexts/enc0/encoder", map[string]any{"sharedBitrates": []int{1000, 2000}})
	if resp.Code != http.StatusOK {
		t.Fatalf("%d %s", resp.Code, resp.Body.String())
	}
	api.Post("/api/contexts/enc0/controls", map[string]any{
		"controls": []map[string]any{{"control": "hierarchical_layers", "value": 2}},
	})
	api.Post("/api/contexts/enc0/submit", map[string]any{"mode": "queued"})
	ctx := decode[models.ContextData](t, api.Get("/api/contexts/enc0"))
	if ctx.Encoder == nil || ctx.Encoder.LayerCount != 2 || len(ctx.Encoder.LayerBitrates) != 2 || ctx.Encoder.LayerBitrates[1] != 2000 {
		t.Errorf("encoder = %+v", ctx.Encoder)
	}

	if resp := api.Put("/api/contexts/dec0/encoder", map[string]any{"roiIndex": 1}); resp.Code != http.StatusBadRequest {
		t.Errorf("encoder params on decoder: %d", resp.Code)
	}
	if resp := api.Put("/api/contexts/enc0/decoder", map[string]any{"colorRange": 1, "colorSpace": 2}); resp.Code != http.StatusBadRequest {
		t.Errorf("decoder state on encoder: %d", resp.Code)
	}
	if resp := api.Put("/api/contexts/dec0/decoder", map[string]any{"colorRange": 1, "colorSpace": 2}); resp.Code != http.StatusOK {
		t.Errorf("decoder state: %d", resp.Code)
	}
}

func TestPresetsAndScenario(t *testing.T) {
	api, _ := newTestAPI(t)
	list := decode[struct {
		Presets []models.PresetData `json:"presets"`
	}](t, api.Get("/api/presets"))
	if len(list.Presets) != 1 || list.Presets[0].Name != "keyframe" {
		t.Errorf("presets = %+v", list.Presets)
	}

	createContext(t, api, "enc0", "encoder")
	if resp := api.Post("/api/contexts/enc0/presets/missing"); resp.Code != http.StatusNotFound {
		t.Errorf("missing preset: %d", resp.Code)
	}

	scenario := `
name = "two frames"
[[contexts]]
name = "s0"
kind = "encoder"
codec = "h264"
[[frames]]
context = "s0"
preset = "keyframe"
payload = "abc"
[[frames]]
context = "s0"
mode = "queued"
abort = true
`
	resp := api.Post("/api/scenarios/run", map[string]any{"scenario": scenario})
	if resp.Code != http.StatusOK {
		t.Fatalf("run: %d %s", resp.Code, resp.Body.String())
	}
	out := decode[struct {
		Name   string                   `json:"name"`
		Frames []models.FrameReportData `json:"frames"`
	}](t, resp)
	if out.Name != "two frames" || len(out.Frames) != 2 || !out.Frames[1].Aborted || out.Frames[0].Stream != 5 {
		t.Errorf("scenario = %+v", out)
	}

	if resp := api.Post("/api/scenarios/run", map[string]any{"scenario": "[[frames]]\ncontext = \"x\"\n"}); resp.Code != http.StatusBadRequest {
		t.Errorf("invalid scenario: %d", resp.Code)
	}
}

func TestLogLevels(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Put("/api/logging/levels/apitest", map[string]any{"level": "debug"})
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"apitest":"debug"`) {
		t.Errorf("set level: %d %s", resp.Code, resp.Body.String())
	}
	if resp := api.Get("/api/logs?module=apitest&limit=5"); resp.Code != http.StatusOK {
		t.Errorf("logs: %d", resp.Code)
	}
}

func TestAuthAndEventStream(t *testing.T) {
	bus := events.New()
	opts := testOptions(t, bus)
	opts.AuthUsername, opts.AuthPassword = "test", "test"
	server := NewServer(opts)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/contexts")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no credentials: %d", resp.StatusCode)
	}
	resp, err = http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health without credentials: %d", resp.StatusCode)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err = http.Get(ts.URL + "/api/events?auth=" + credentials)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("content type %q", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				lines <- line
			}
		}
	}()
	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for event")
			return ""
		}
	}

	if msg := next(); !strings.Contains(msg, "event stream connected") {
		t.Errorf("first message = %s", msg)
	}
	opts.Session.CreateWithID("enc0", bufctrl.KindEncoder, bufctrl.CodecH264)
	if err := opts.Session.Set("enc0", session.Setting{ID: bufctrl.IDFrameTag, Value: 9}); err != nil {
		t.Fatal(err)
	}
	if _, err := opts.Session.Submit("enc0", bufctrl.ModeSynchronous); err != nil {
		t.Fatal(err)
	}
	// Each event type has its own subscriber queue, so arrival order varies.
	got := next() + next()
	if !strings.Contains(got, `"control":"frame_tag"`) {
		t.Errorf("no applied event in %s", got)
	}
	if !strings.Contains(got, `"frame_tag":9`) {
		t.Errorf("no submitted event in %s", got)
	}
}
