package store

import "strings"

type withPrefix struct {
	os     Store
	prefix string
}

// WithPrefix returns a view of s where every key is placed under prefix.
func WithPrefix(s Store, prefix string) Store {
	return &withPrefix{s, strings.TrimSuffix(prefix, "/") + "/"}
}

func (p *withPrefix) Get(key string) ([]byte, error) {
	return p.os.Get(p.prefix + key)
}

func (p *withPrefix) Put(key string, value []byte) error {
	return p.os.Put(p.prefix+key, value)
}

func (p *withPrefix) Delete(key string) error {
	return p.os.Delete(p.prefix + key)
}

func (p *withPrefix) Contains(key string) (bool, error) {
	return p.os.Contains(p.prefix + key)
}

func (p *withPrefix) List(prefix string) ([]string, error) {
	keys, err := p.os.List(p.prefix + prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, p.prefix) {
			out = append(out, strings.TrimPrefix(k, p.prefix))
		}
	}
	return out, nil
}

func (p *withPrefix) Info() Info {
	info := p.os.Info()
	info.Name += "/" + strings.TrimSuffix(p.prefix, "/")
	return info
}
