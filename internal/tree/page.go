package tree

import "encoding/json"

// PageSettings is document-level state kept next to the block tree.
type PageSettings struct {
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description"`
	Favicon         string `json:"favicon" yaml:"favicon"`
	Font            string `json:"font" yaml:"font"`
	PrimaryColor    string `json:"primary_color" yaml:"primary_color"`
	BackgroundColor string `json:"background_color" yaml:"background_color"`
	Theme           string `json:"theme" yaml:"theme"`
}

// PageSettings returns the current page settings.
func (s *Store) PageSettings() PageSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// UpdatePageSettings merges patch into the page settings. Unknown keys are
// ignored and a nil value clears a field.
func (s *Store) UpdatePageSettings(patch map[string]any) bool {
	return s.mutate(func() (Change, bool) {
		next, err := mergePage(s.page, patch)
		if err != nil {
			s.reject(OpPage, "", err.Error())
			return Change{}, false
		}
		if next == s.page {
			return Change{}, false
		}
		s.page = next
		return Change{Op: OpPage}, true
	})
}

func mergePage(p PageSettings, patch map[string]any) (PageSettings, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return p, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return p, err
	}
	for k, v := range patch {
		if _, known := m[k]; !known {
			continue
		}
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	if data, err = json.Marshal(m); err != nil {
		return p, err
	}
	var out PageSettings
	if err := json.Unmarshal(data, &out); err != nil {
		return p, err
	}
	return out, nil
}
