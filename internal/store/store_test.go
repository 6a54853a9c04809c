package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/quote"
)

func sampleRecord() *Record {
	r := NewRecord()
	r.Brands = []string{"혼다"}
	r.Models["혼다"] = []string{"CBR600RR"}
	r.Parts["혼다-CBR600RR"] = []catalog.Part{
		{Name: "브레이크패드", Price: 80000, Position: catalog.Position{X: 30, Y: 50}, Number: 1},
		{Name: "타이어", Price: 150000, Position: catalog.Position{X: 30, Y: 50, Sub: "a"}, Number: 2},
	}
	r.Images["혼다-CBR600RR"] = catalog.ImageList{"https://cdn.example.com/diagrams/a.jpg"}
	r.ShopInfo = quote.ShopInfo{Name: "스피드모터스"}
	r.LaborRate = 60000
	return r
}

func TestDecodeRecord_Legacy(t *testing.T) {
	doc := `{
		"brands": ["혼다"],
		"models": {"혼다": ["CBR600RR"]},
		"parts": {"혼다-CBR600RR": [
			{"name": "엔진오일", "price": 35000, "position": "15, 60", "number": 1},
			{"name": "타이어", "price": 150000, "position": {"x": 75, "y": 50, "sub": null}, "number": 2}
		]},
		"modelImages": {"혼다-CBR600RR": "data:image/png;base64,AAAA"}
	}`

	r, err := DecodeRecord([]byte(doc))
	require.NoError(t, err)

	parts := r.Parts["혼다-CBR600RR"]
	require.Len(t, parts, 2)
	assert.Equal(t, catalog.Position{X: 15, Y: 60}, parts[0].Position)
	assert.Equal(t, catalog.Position{X: 75, Y: 50}, parts[1].Position)
	assert.Equal(t, catalog.ImageList{"data:image/png;base64,AAAA"}, r.Images["혼다-CBR600RR"])
	assert.Equal(t, quote.DefaultLaborRate, r.LaborRate)
}

func TestRecordClone(t *testing.T) {
	r := sampleRecord()
	c, err := r.Clone()
	require.NoError(t, err)
	assert.Equal(t, r, c)

	c.Parts["혼다-CBR600RR"][0].Name = "changed"
	assert.Equal(t, "브레이크패드", r.Parts["혼다-CBR600RR"][0].Name)
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "partsquote.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	r, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, r, "empty store has no record")

	want := sampleRecord()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.LaborRate = 70000
	require.NoError(t, s.Save(ctx, want))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), got.LaborRate)
}

type fakeStore struct {
	name    string
	record  *Record
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Name() string { return f.name }

func (f *fakeStore) Load(context.Context) (*Record, error) { return f.record, f.loadErr }

func (f *fakeStore) Save(_ context.Context, r *Record) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.record = r
	return nil
}

func (f *fakeStore) Close() error { return nil }

func TestFallbackStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("cloud succeeds", func(t *testing.T) {
		cloud := &fakeStore{name: "cloud"}
		local := &fakeStore{name: "local"}
		s := NewFallbackStore(cloud, local, zap.NewNop())

		require.NoError(t, s.Save(ctx, sampleRecord()))
		assert.Equal(t, 1, cloud.saves)
		assert.Equal(t, 0, local.saves)
	})

	t.Run("cloud fails", func(t *testing.T) {
		cloud := &fakeStore{name: "cloud", saveErr: errors.New("unavailable")}
		local := &fakeStore{name: "local"}
		s := NewFallbackStore(cloud, local, zap.NewNop())

		require.NoError(t, s.Save(ctx, sampleRecord()))
		assert.Equal(t, 1, local.saves)
		assert.NotNil(t, local.record)
	})

	t.Run("no cloud", func(t *testing.T) {
		local := &fakeStore{name: "local"}
		s := NewFallbackStore(nil, local, nil)

		require.NoError(t, s.Save(ctx, sampleRecord()))
		assert.Equal(t, 1, local.saves)
		assert.Equal(t, "local", s.Name())
	})
}

func TestFallbackStore_Load(t *testing.T) {
	ctx := context.Background()
	cloudRecord := sampleRecord()
	localRecord := NewRecord()

	tests := []struct {
		name  string
		cloud *fakeStore
		want  *Record
	}{
		{name: "cloud record wins", cloud: &fakeStore{name: "cloud", record: cloudRecord}, want: cloudRecord},
		{name: "cloud empty", cloud: &fakeStore{name: "cloud"}, want: localRecord},
		{name: "cloud error", cloud: &fakeStore{name: "cloud", loadErr: errors.New("timeout")}, want: localRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFallbackStore(tt.cloud, &fakeStore{name: "local", record: localRecord}, zap.NewNop())
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestFallbackStore_WithSQLite(t *testing.T) {
	ctx := context.Background()
	local := newSQLiteStore(t)
	s := NewFallbackStore(&fakeStore{name: "cloud", saveErr: errors.New("down"), loadErr: errors.New("down")}, local, zap.NewNop())

	want := sampleRecord()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImagePath(t *testing.T) {
	now := time.UnixMilli(1714554000123)
	assert.Equal(t, "diagrams/혼다/CBR600RR_1714554000123.jpg", ImagePath("혼다", "CBR600RR", "", now))
	assert.Equal(t, "diagrams/BMW_Motorrad/R_1250_GS_1714554000123.png", ImagePath("BMW Motorrad", "R 1250/GS", ".PNG", now))
}

func TestExtensionFor(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "png", ExtensionFor(png))
	assert.Equal(t, "jpg", ExtensionFor([]byte("\xff\xd8\xff\xe0")))
}

func TestDataURLStore(t *testing.T) {
	ctx := context.Background()
	var s DataURLStore

	url, err := s.Upload(ctx, []byte("hello"), "diagrams/혼다/x_1.png")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)

	data, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, ok := s.PathFromURL(url)
	assert.False(t, ok)
	assert.NoError(t, s.Delete(ctx, "anything"))

	_, err = DecodeDataURL("https://example.com/x.png")
	assert.Error(t, err)
}

// Runs against a real database when TEST_PG_HOST is set.
func TestPostgresStore(t *testing.T) {
	host := os.Getenv("TEST_PG_HOST")
	if host == "" {
		t.Skip("No test database configured - set TEST_PG_HOST, TEST_PG_USER, etc.")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, map[string]string{
		"host":        host,
		"port":        getEnvOrDefault("TEST_PG_PORT", "5432"),
		"username":    getEnvOrDefault("TEST_PG_USER", "postgres"),
		"password":    getEnvOrDefault("TEST_PG_PASSWORD", "postgres"),
		"database":    getEnvOrDefault("TEST_PG_DATABASE", "partsquote"),
		"sslmode":     "disable",
		"document_id": "test-" + time.Now().Format("150405.000000"),
	}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	r, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, r)

	want := sampleRecord()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.pool.Exec(ctx, `DELETE FROM `+documentsTable+` WHERE id = $1`, s.docID)
	require.NoError(t, err)
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
