// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

// Map is an ordinary map[string]any but implements the Source interface.
type Map map[string]any

// Apply implements the Source interface. It recursively walks the underlying
// map to find key value pairs to set on the given store.
func (m Map) Apply(store Store) error {
	return walkMap(m, store, nil)
}

func walkMap(m map[string]any, store Store, path []string) error {
	for k, v := range m {
		p := append(path[:len(path):len(path)], k)

		x, ok := v.(map[string]any)
		if !ok {
			err := store.Set(p, v)
			if err != nil {
				return err
			}
			continue
		}

		err := walkMap(x, store, p)
		if err != nil {
			return err
		}
	}
	return nil
}
