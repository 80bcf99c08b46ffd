package codecs

// Pipeline applies the configured filters in chain order and the compressor
// last on encode; decode runs the exact inverse in reverse order.
type Pipeline struct {
	filters    []Codec
	compressor Codec // nil means uncompressed
	elemSize   int
}

func NewPipeline(filters []Codec, compressor Codec, elemSize int) *Pipeline {
	return &Pipeline{filters: filters, compressor: compressor, elemSize: elemSize}
}

func (p *Pipeline) Filters() []Codec  { return p.filters }
func (p *Pipeline) Compressor() Codec { return p.compressor }

func (p *Pipeline) Encode(data []byte) ([]byte, error) {
	var err error
	for _, f := range p.filters {
		if data, err = f.Encode(data, p.elemSize); err != nil {
			return nil, codecErr(f.ID(), err)
		}
	}
	if p.compressor != nil {
		if data, err = p.compressor.Encode(data, p.elemSize); err != nil {
			return nil, codecErr(p.compressor.ID(), err)
		}
	}
	return data, nil
}

func (p *Pipeline) Decode(data []byte) ([]byte, error) {
	var err error
	if p.compressor != nil {
		if data, err = p.compressor.Decode(data, p.elemSize); err != nil {
			return nil, codecErr(p.compressor.ID(), err)
		}
	}
	for i := len(p.filters) - 1; i >= 0; i-- {
		f := p.filters[i]
		if data, err = f.Decode(data, p.elemSize); err != nil {
			return nil, codecErr(f.ID(), err)
		}
	}
	return data, nil
}
