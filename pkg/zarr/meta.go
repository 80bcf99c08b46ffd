package zarr

import (
	"bytes"
	"encoding/json"
	"math"

	"NDZarr/pkg/codecs"
	"NDZarr/pkg/store"

	"github.com/pkg/errors"
)

// Metadata keys per dialect.
const (
	v2ArrayKey = ".zarray"
	v2GroupKey = ".zgroup"
	v2AttrsKey = ".zattrs"
	v3Key      = "zarr.json"
)

// Fill values that JSON cannot carry as numbers.
const (
	fillNaN    = "NaN"
	fillPosInf = "Infinity"
	fillNegInf = "-Infinity"
)

var compressorIDs = map[string]bool{
	"blosc": true, "gzip": true, "zstd": true, "zlib": true,
}

var filterIDs = map[string]bool{
	"delta": true, "shuffle": true,
}

// Metadata is the immutable descriptor of an array: shape, chunking, element
// type, fill value, layout and codec chain, plus the dialect it persists in.
type Metadata struct {
	Shape              []int
	Chunks             []int
	Dtype              Dtype
	FillValue          float64
	Order              Order
	Version            int // 2 or 3
	DimensionSeparator string
	Filters            []codecs.Codec
	Compressor         codecs.Codec // nil means raw chunks
	Attributes         map[string]interface{}
}

func (m *Metadata) validate() error {
	if len(m.Shape) == 0 {
		return errors.Wrap(ErrInvalidShape, "empty shape")
	}
	for d, s := range m.Shape {
		if s <= 0 {
			return errors.Wrapf(ErrInvalidShape, "dimension %d has length %d", d, s)
		}
	}
	if len(m.Chunks) != len(m.Shape) {
		return errors.Wrapf(ErrInvalidChunks, "rank %d chunk shape for rank %d array", len(m.Chunks), len(m.Shape))
	}
	for d, c := range m.Chunks {
		if c <= 0 {
			return errors.Wrapf(ErrInvalidChunks, "dimension %d has chunk length %d", d, c)
		}
	}
	if m.Version != 2 && m.Version != 3 {
		return errors.Wrapf(ErrInvalidMetadata, "format version %d", m.Version)
	}
	if m.Order != RowMajor && m.Order != ColMajor {
		return errors.Wrapf(ErrInvalidMetadata, "order %q", m.Order)
	}
	return nil
}

// metaKey joins a node path and a metadata document name.
func metaKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

type zarrayDoc struct {
	ZarrFormat         int                      `json:"zarr_format"`
	Shape              []int                    `json:"shape"`
	Chunks             []int                    `json:"chunks"`
	Dtype              string                   `json:"dtype"`
	Compressor         map[string]interface{}   `json:"compressor"`
	FillValue          interface{}              `json:"fill_value"`
	Order              string                   `json:"order"`
	Filters            []map[string]interface{} `json:"filters"`
	DimensionSeparator string                   `json:"dimension_separator,omitempty"`
}

type v3CodecDoc struct {
	Name          string                 `json:"name"`
	Configuration map[string]interface{} `json:"configuration,omitempty"`
}

type v3ChunkGridDoc struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []int `json:"chunk_shape"`
	} `json:"configuration"`
}

type v3Doc struct {
	ZarrFormat int                    `json:"zarr_format"`
	NodeType   string                 `json:"node_type"`
	Shape      []int                  `json:"shape,omitempty"`
	DataType   string                 `json:"data_type,omitempty"`
	ChunkGrid  *v3ChunkGridDoc        `json:"chunk_grid,omitempty"`
	Codecs     []v3CodecDoc           `json:"codecs,omitempty"`
	FillValue  interface{}            `json:"fill_value,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

func (m *Metadata) fillValueJSON() interface{} {
	if math.IsNaN(m.FillValue) {
		return fillNaN
	}
	if math.IsInf(m.FillValue, 1) {
		return fillPosInf
	}
	if math.IsInf(m.FillValue, -1) {
		return fillNegInf
	}
	if !m.Dtype.IsFloat() || m.FillValue == math.Trunc(m.FillValue) {
		// render integral values without a fraction part
		return int64(m.FillValue)
	}
	return m.FillValue
}

func parseFillValue(v interface{}) (float64, error) {
	switch fv := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return fv, nil
	case string:
		switch fv {
		case fillNaN:
			return math.NaN(), nil
		case fillPosInf:
			return math.Inf(1), nil
		case fillNegInf:
			return math.Inf(-1), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidMetadata, "fill value %v", v)
}

// MarshalV2 renders the .zarray document.
func (m *Metadata) MarshalV2() ([]byte, error) {
	doc := zarrayDoc{
		ZarrFormat:         2,
		Shape:              m.Shape,
		Chunks:             m.Chunks,
		Dtype:              m.Dtype.V2String(),
		FillValue:          m.fillValueJSON(),
		Order:              string(m.Order),
		DimensionSeparator: m.DimensionSeparator,
	}
	if m.Compressor != nil {
		doc.Compressor = m.Compressor.Config()
	}
	for _, f := range m.Filters {
		doc.Filters = append(doc.Filters, f.Config())
	}
	return json.MarshalIndent(&doc, "", "    ")
}

// MarshalV3 renders the zarr.json document. The codec chain is emitted with a
// leading "bytes" (endian) entry the way zarr-python v3 does.
func (m *Metadata) MarshalV3() ([]byte, error) {
	doc := v3Doc{
		ZarrFormat: 3,
		NodeType:   "array",
		Shape:      m.Shape,
		DataType:   m.Dtype.String(),
		ChunkGrid:  &v3ChunkGridDoc{Name: "regular"},
		FillValue:  m.fillValueJSON(),
		Attributes: m.Attributes,
	}
	doc.ChunkGrid.Configuration.ChunkShape = m.Chunks
	if doc.Attributes == nil {
		doc.Attributes = map[string]interface{}{}
	}
	doc.Codecs = append(doc.Codecs, v3CodecDoc{
		Name:          "bytes",
		Configuration: map[string]interface{}{"endian": "little"},
	})
	for _, f := range m.Filters {
		doc.Codecs = append(doc.Codecs, v3CodecDoc{Name: f.ID(), Configuration: configuration(f)})
	}
	if m.Compressor != nil {
		doc.Codecs = append(doc.Codecs, v3CodecDoc{Name: m.Compressor.ID(), Configuration: configuration(m.Compressor)})
	}
	return json.MarshalIndent(&doc, "", "    ")
}

// configuration is a codec's config without the redundant id key.
func configuration(c codecs.Codec) map[string]interface{} {
	cfg := c.Config()
	out := make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}

// Write persists a complete metadata document (and, for v2, the attributes
// document) for the node at path. It never reads first and is idempotent.
func (m *Metadata) Write(s store.Store, path string) error {
	if err := m.validate(); err != nil {
		return err
	}
	if m.Version == 3 {
		data, err := m.MarshalV3()
		if err != nil {
			return err
		}
		if err := s.Put(metaKey(path, v3Key), data); err != nil {
			return storeErr(err, "write metadata for %q", path)
		}
		return nil
	}
	data, err := m.MarshalV2()
	if err != nil {
		return err
	}
	if err := s.Put(metaKey(path, v2ArrayKey), data); err != nil {
		return storeErr(err, "write metadata for %q", path)
	}
	if len(m.Attributes) > 0 {
		attrs, err := json.MarshalIndent(m.Attributes, "", "    ")
		if err != nil {
			return err
		}
		if err := s.Put(metaKey(path, v2AttrsKey), attrs); err != nil {
			return storeErr(err, "write attributes for %q", path)
		}
	}
	return nil
}

// requireFields checks dialect-required keys before interpreting a document.
func requireFields(raw map[string]json.RawMessage, path string, data []byte, fields ...string) error {
	for _, f := range fields {
		if _, ok := raw[f]; !ok {
			return errors.Wrapf(ErrInvalidMetadata, "%s: missing %q in %.120q", path, f, data)
		}
	}
	return nil
}

// UnmarshalV2 parses a .zarray document plus an optional .zattrs document.
func UnmarshalV2(path string, data, attrData []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %s in %.120q", path, err, data)
	}
	if err := requireFields(raw, path, data, "zarr_format", "shape", "chunks", "dtype", "compressor", "fill_value", "order", "filters"); err != nil {
		return nil, err
	}
	var doc zarrayDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %s in %.120q", path, err, data)
	}
	if doc.ZarrFormat != 2 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: zarr_format %d in a v2 document", path, doc.ZarrFormat)
	}
	dt, err := ParseDtype(doc.Dtype)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: dtype %q", path, doc.Dtype)
	}
	order, err := parseOrder(doc.Order)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	fill, err := parseFillValue(doc.FillValue)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	m := &Metadata{
		Shape:              doc.Shape,
		Chunks:             doc.Chunks,
		Dtype:              dt,
		FillValue:          fill,
		Order:              order,
		Version:            2,
		DimensionSeparator: doc.DimensionSeparator,
	}
	if m.DimensionSeparator == "" {
		m.DimensionSeparator = "."
	}
	if doc.Compressor != nil {
		c, err := codecs.FromConfig(doc.Compressor)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: compressor: %s", path, err)
		}
		m.Compressor = c
	}
	for _, fc := range doc.Filters {
		f, err := codecs.FromConfig(fc)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: filter: %s", path, err)
		}
		m.Filters = append(m.Filters, f)
	}
	if len(attrData) > 0 {
		if err := json.Unmarshal(attrData, &m.Attributes); err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: attributes: %s in %.120q", path, err, attrData)
		}
	}
	if err := m.validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return m, nil
}

// UnmarshalV3 parses a zarr.json array document.
func UnmarshalV3(path string, data []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %s in %.120q", path, err, data)
	}
	if err := requireFields(raw, path, data, "zarr_format", "node_type", "shape", "data_type", "chunk_grid", "codecs", "fill_value"); err != nil {
		return nil, err
	}
	var doc v3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %s in %.120q", path, err, data)
	}
	if doc.ZarrFormat != 3 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: zarr_format %d in a v3 document", path, doc.ZarrFormat)
	}
	if doc.NodeType != "array" {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: node_type %q is not an array", path, doc.NodeType)
	}
	if doc.ChunkGrid == nil || doc.ChunkGrid.Name != "regular" {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: unsupported chunk grid", path)
	}
	dt, err := ParseDtype(doc.DataType)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: data_type %q", path, doc.DataType)
	}
	fill, err := parseFillValue(doc.FillValue)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	m := &Metadata{
		Shape:      doc.Shape,
		Chunks:     doc.ChunkGrid.Configuration.ChunkShape,
		Dtype:      dt,
		FillValue:  fill,
		Order:      RowMajor,
		Version:    3,
		Attributes: doc.Attributes,
	}
	for _, cd := range doc.Codecs {
		if cd.Name == "bytes" || cd.Name == "endian" {
			continue
		}
		cfg := make(map[string]interface{}, len(cd.Configuration)+1)
		for k, v := range cd.Configuration {
			cfg[k] = v
		}
		cfg["id"] = cd.Name
		c, err := codecs.FromConfig(cfg)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: codec %q: %s", path, cd.Name, err)
		}
		switch {
		case filterIDs[cd.Name]:
			if m.Compressor != nil {
				return nil, errors.Wrapf(ErrInvalidMetadata, "%s: filter %q after compressor", path, cd.Name)
			}
			m.Filters = append(m.Filters, c)
		case compressorIDs[cd.Name]:
			if m.Compressor != nil {
				return nil, errors.Wrapf(ErrInvalidMetadata, "%s: more than one compressor", path)
			}
			m.Compressor = c
		default:
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: codec %q is neither filter nor compressor", path, cd.Name)
		}
	}
	if err := m.validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return m, nil
}

// ReadMetadata loads the metadata for the array at path, trying the v3 layout
// first and falling back to v2.
func ReadMetadata(s store.Store, path string) (*Metadata, error) {
	if data, err := s.Get(metaKey(path, v3Key)); err == nil {
		return UnmarshalV3(path, data)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr(err, "read metadata for %q", path)
	}
	data, err := s.Get(metaKey(path, v2ArrayKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(ErrPathNotFound, "no array at %q", path)
	}
	if err != nil {
		return nil, storeErr(err, "read metadata for %q", path)
	}
	var attrData []byte
	if ad, err := s.Get(metaKey(path, v2AttrsKey)); err == nil {
		attrData = ad
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr(err, "read attributes for %q", path)
	}
	return UnmarshalV2(path, data, attrData)
}

// Equal compares two documents' payloads, ignoring insignificant whitespace.
func jsonEqual(a, b []byte) bool {
	var buf1, buf2 bytes.Buffer
	if json.Compact(&buf1, a) != nil || json.Compact(&buf2, b) != nil {
		return false
	}
	return bytes.Equal(buf1.Bytes(), buf2.Bytes())
}
