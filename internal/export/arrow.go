// Package export writes the part catalog as an Apache Arrow IPC stream.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/catalog"
)

// PartsSchema is the schema of every exported record batch. Brand and model
// are null for part catalogs whose model is no longer registered; sub is null
// for bare positions.
var PartsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "catalog_key", Type: arrow.BinaryTypes.String},
	{Name: "brand", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "model", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "price", Type: arrow.PrimitiveTypes.Int64},
	{Name: "x", Type: arrow.PrimitiveTypes.Int32},
	{Name: "y", Type: arrow.PrimitiveTypes.Int32},
	{Name: "sub", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// Row is one exported part.
type Row struct {
	CatalogKey string
	Brand      string
	Model      string
	catalog.Part
}

// Exporter streams catalog parts, one record batch per catalog.
type Exporter struct {
	pool   memory.Allocator
	logger *zap.Logger
}

func NewExporter(pool memory.Allocator, logger *zap.Logger) *Exporter {
	if pool == nil {
		pool = memory.NewGoAllocator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{pool: pool, logger: logger}
}

// Rows flattens c in brand, model order. Part catalogs without a registered
// model follow in key order.
func Rows(c *catalog.Catalog) [][]Row {
	var batches [][]Row
	seen := make(map[string]bool)

	for _, brand := range c.Brands {
		for _, model := range c.Models[brand] {
			key := catalog.Key(brand, model)
			seen[key] = true
			if batch := rowsOf(key, brand, model, c.Parts[key]); len(batch) > 0 {
				batches = append(batches, batch)
			}
		}
	}

	var orphans []string
	for key := range c.Parts {
		if !seen[key] {
			orphans = append(orphans, key)
		}
	}
	slices.Sort(orphans)
	for _, key := range orphans {
		if batch := rowsOf(key, "", "", c.Parts[key]); len(batch) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches
}

func rowsOf(key, brand, model string, parts []catalog.Part) []Row {
	rows := make([]Row, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, Row{CatalogKey: key, Brand: brand, Model: model, Part: p})
	}
	return rows
}

// WriteParts writes every part of c to w and returns the number of rows.
func (e *Exporter) WriteParts(w io.Writer, c *catalog.Catalog) (int, error) {
	writer := ipc.NewWriter(w, ipc.WithSchema(PartsSchema), ipc.WithAllocator(e.pool))

	total := 0
	for _, batch := range Rows(c) {
		if err := e.writeBatch(writer, batch); err != nil {
			writer.Close()
			return total, err
		}
		total += len(batch)
	}

	if err := writer.Close(); err != nil {
		return total, fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	e.logger.Info("Parts exported", zap.Int("rows", total))
	return total, nil
}

func (e *Exporter) writeBatch(writer *ipc.Writer, rows []Row) error {
	builder := array.NewRecordBuilder(e.pool, PartsSchema)
	defer builder.Release()

	for _, row := range rows {
		appendRow(builder, row)
	}

	record := builder.NewRecord()
	defer record.Release()

	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record batch for %s: %w", rows[0].CatalogKey, err)
	}
	return nil
}

func appendRow(b *array.RecordBuilder, row Row) {
	b.Field(0).(*array.StringBuilder).Append(row.CatalogKey)
	appendOptional(b.Field(1).(*array.StringBuilder), row.Brand)
	appendOptional(b.Field(2).(*array.StringBuilder), row.Model)
	b.Field(3).(*array.StringBuilder).Append(row.Name)
	b.Field(4).(*array.Int32Builder).Append(int32(row.Number))
	b.Field(5).(*array.Int64Builder).Append(row.Price)
	b.Field(6).(*array.Int32Builder).Append(int32(row.Position.X))
	b.Field(7).(*array.Int32Builder).Append(int32(row.Position.Y))
	appendOptional(b.Field(8).(*array.StringBuilder), row.Position.Sub)
}

func appendOptional(b *array.StringBuilder, s string) {
	if s == "" {
		b.AppendNull()
		return
	}
	b.Append(s)
}

// ReadParts decodes a stream written by WriteParts. Strings are copied out
// of the Arrow buffers before each batch is released.
func ReadParts(r io.Reader, pool memory.Allocator) ([]Row, error) {
	if pool == nil {
		pool = memory.NewGoAllocator()
	}
	reader, err := ipc.NewReader(r, ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer reader.Release()

	if !reader.Schema().Equal(PartsSchema) {
		return nil, fmt.Errorf("unexpected schema: %s", reader.Schema())
	}

	var rows []Row
	for reader.Next() {
		rows = append(rows, decodeRecord(reader.Record())...)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read record batch: %w", err)
	}
	return rows, nil
}

func decodeRecord(rec arrow.Record) []Row {
	keys := rec.Column(0).(*array.String)
	brands := rec.Column(1).(*array.String)
	models := rec.Column(2).(*array.String)
	names := rec.Column(3).(*array.String)
	numbers := rec.Column(4).(*array.Int32)
	prices := rec.Column(5).(*array.Int64)
	xs := rec.Column(6).(*array.Int32)
	ys := rec.Column(7).(*array.Int32)
	subs := rec.Column(8).(*array.String)

	rows := make([]Row, 0, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		rows = append(rows, Row{
			CatalogKey: strings.Clone(keys.Value(i)),
			Brand:      optional(brands, i),
			Model:      optional(models, i),
			Part: catalog.Part{
				Name:   strings.Clone(names.Value(i)),
				Price:  prices.Value(i),
				Number: int(numbers.Value(i)),
				Position: catalog.Position{
					X:   int(xs.Value(i)),
					Y:   int(ys.Value(i)),
					Sub: optional(subs, i),
				},
			},
		})
	}
	return rows
}

func optional(arr *array.String, i int) string {
	if arr.IsNull(i) {
		return ""
	}
	return strings.Clone(arr.Value(i))
}
