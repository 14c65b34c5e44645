package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/config"
	"github.com/thingforge/thingforge/internal/dispatcher"
	"github.com/thingforge/thingforge/internal/imaging"
	"github.com/thingforge/thingforge/internal/project"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/storage/memory"
	"github.com/thingforge/thingforge/internal/thing"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// recorder collects everything the dispatcher and the store publish.
type recorder struct {
	mu    sync.Mutex
	items []protocol.Command
}

func (r *recorder) Publish(n protocol.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) snapshot() []protocol.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Command(nil), r.items...)
}

func (r *recorder) result(id string) (protocol.Result, bool) {
	for _, n := range r.snapshot() {
		if res, ok := n.(protocol.Result); ok && res.RequestID == id {
			return res, true
		}
	}
	return protocol.Result{}, false
}

type harness struct {
	d        *dispatcher.Dispatcher
	m        *Manager
	rec      *recorder
	settings *config.Settings
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rec := &recorder{}
	settings := config.Defaults()
	settings.Set("storage.memory.outputDir", filepath.Join(t.TempDir(), "catalogs"))

	store := project.NewStore(project.Options{Publisher: rec})
	m := NewManager(Dependencies{Store: store, Settings: settings, Publisher: rec})

	d, err := dispatcher.New(&mockLogger{}, rec)
	require.NoError(t, err)
	m.RegisterHandlers(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = store.Close()
	})
	return &harness{d: d, m: m, rec: rec, settings: settings}
}

// do submits cmd and waits for its result.
func (h *harness) do(t *testing.T, cmd protocol.Command) protocol.Result {
	t.Helper()
	id := h.d.Submit(cmd)
	var res protocol.Result
	require.Eventually(t, func() bool {
		var ok bool
		res, ok = h.rec.result(id)
		return ok
	}, 5*time.Second, 5*time.Millisecond, "no result for %s", cmd.Kind())
	return res
}

func (h *harness) create(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "project")
	res := h.do(t, protocol.CreateProject{Dir: dir, Version: 860})
	require.False(t, res.Failed(), res.Error)
	return dir
}

func solid(r, g, b byte) []byte {
	px := make([]byte, sprite.PixelBytes)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, b, 255
	}
	return px
}

func TestRegisterHandlers_CoversEveryRequest(t *testing.T) {
	d, err := dispatcher.New(&mockLogger{}, nil)
	require.NoError(t, err)
	NewManager(Dependencies{Store: project.NewStore(project.Options{})}).RegisterHandlers(d)

	for _, k := range protocol.Kinds() {
		if !k.IsRequest() || k == protocol.KindCancel {
			assert.False(t, d.HasHandler(k), "%s should not have a handler", k)
			continue
		}
		assert.True(t, d.HasHandler(k), "missing handler for %s", k)
	}
}

func TestNoProject(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, protocol.GetThing{Category: thing.Item, ID: 100})
	assert.True(t, res.Failed())
	assert.Equal(t, "ValidationError", res.ErrorKind)

	res = h.do(t, protocol.ExportCatalog{})
	assert.Equal(t, "ValidationError", res.ErrorKind)
	assert.Nil(t, h.m.LogContext())
}

func TestCreateAndEditThings(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	require.Len(t, h.m.LogContext(), 1)
	assert.Equal(t, "client", h.m.LogContext()[0].Key)

	res := h.do(t, protocol.NewThing{Category: thing.Item})
	require.False(t, res.Failed(), res.Error)
	added, ok := res.Value.(*thing.Thing)
	require.True(t, ok)
	assert.Equal(t, uint32(101), added.ID)

	res = h.do(t, protocol.ListThings{Category: thing.Item})
	require.False(t, res.Failed(), res.Error)
	list, ok := res.Value.([]project.ThingSummary)
	require.True(t, ok)
	assert.Len(t, list, 2)

	res = h.do(t, protocol.UpdateThing{})
	assert.Equal(t, "ValidationError", res.ErrorKind)

	res = h.do(t, protocol.GetThing{Category: thing.Item, ID: 500})
	assert.Equal(t, "RangeError", res.ErrorKind)

	res = h.do(t, protocol.RemoveThings{Category: thing.Item, IDs: []uint32{101}})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, []uint32{101}, res.Value)

	res = h.do(t, protocol.UnloadProject{})
	require.False(t, res.Failed(), res.Error)
	assert.Nil(t, h.m.LogContext())
}

func TestSprites(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	res := h.do(t, protocol.AddSprite{Pixels: solid(255, 0, 0)})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, IDResult{ID: 1}, res.Value)

	path := filepath.Join(t.TempDir(), "green.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, imaging.PNG{}.Encode(f, imaging.SpriteImage(solid(0, 255, 0))))
	require.NoError(t, f.Close())

	res = h.do(t, protocol.ReplaceSprite{ID: 1, Path: path})
	require.False(t, res.Failed(), res.Error)

	res = h.do(t, protocol.GetSprite{ID: 1})
	require.False(t, res.Failed(), res.Error)
	sp, ok := res.Value.(*sprite.Sprite)
	require.True(t, ok)
	assert.Equal(t, solid(0, 255, 0), sp.Pixels)

	res = h.do(t, protocol.AddSprite{})
	assert.Equal(t, "ValidationError", res.ErrorKind)
	res = h.do(t, protocol.AddSprite{Pixels: solid(1, 2, 3), Path: path})
	assert.Equal(t, "ValidationError", res.ErrorKind)

	res = h.do(t, protocol.FindSprites{Unused: true})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, []uint32{1}, res.Value)
}

func TestExportSpriteImage(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	require.False(t, h.do(t, protocol.AddSprite{Pixels: solid(10, 20, 30)}).Failed())

	out := filepath.Join(t.TempDir(), "images")
	res := h.do(t, protocol.ExportSpriteImage{IDs: []uint32{1}, Dir: out})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, SpriteImages{Paths: []string{filepath.Join(out, "sprite_1.png")}}, res.Value)
	assert.FileExists(t, filepath.Join(out, "sprite_1.png"))

	var progress []protocol.Progress
	for _, n := range h.rec.snapshot() {
		if p, ok := n.(protocol.Progress); ok && p.Bar == protocol.BarSprites {
			progress = append(progress, p)
		}
	}
	require.NotEmpty(t, progress)
	assert.Equal(t, 1, progress[len(progress)-1].Value)

	res = h.do(t, protocol.ExportSpriteImage{IDs: []uint32{1}})
	assert.Equal(t, "ValidationError", res.ErrorKind)
	res = h.do(t, protocol.ExportSpriteImage{IDs: []uint32{9}, Dir: out})
	assert.Equal(t, "RangeError", res.ErrorKind)
}

func TestExportCatalog_Memory(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	require.False(t, h.do(t, protocol.NewThing{Category: thing.Item}).Failed())

	res := h.do(t, protocol.ExportCatalog{})
	require.False(t, res.Failed(), res.Error)
	cr, ok := res.Value.(CatalogResult)
	require.True(t, ok)
	assert.Equal(t, "memory", cr.Backend)
	assert.Equal(t, 5, cr.Records)
	assert.True(t, strings.HasSuffix(cr.Location, ".json.gz"), cr.Location)

	export, err := memory.ReadExport(cr.Location)
	require.NoError(t, err)
	assert.Equal(t, uint16(860), export.ClientVersion)
	assert.Equal(t, 2, export.Count(thing.Item))
}

func TestExportCatalog_UnknownBackend(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	res := h.do(t, protocol.ExportCatalog{Backend: "mongo"})
	assert.Equal(t, "ValidationError", res.ErrorKind)
}

func TestExportThing_Generation(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	path := filepath.Join(t.TempDir(), "item.obd")

	res := h.do(t, protocol.ExportThing{Category: thing.Item, ID: 100, Path: path, Generation: 4})
	assert.Equal(t, "ValidationError", res.ErrorKind)

	res = h.do(t, protocol.ExportThing{Category: thing.Item, ID: 100, Path: path, Generation: 200})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, PathResult{Path: path}, res.Value)

	res = h.do(t, protocol.ImportThing{Path: path})
	require.False(t, res.Failed(), res.Error)
	imported, ok := res.Value.(project.ImportResult)
	require.True(t, ok)
	assert.Equal(t, uint32(101), imported.Thing.ID)

	res = h.do(t, protocol.ImportThing{})
	assert.Equal(t, "ValidationError", res.ErrorKind)
}
