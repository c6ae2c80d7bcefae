package inmem

import "context"

// SettingRepository stores tool-wide key/value settings in a Store.
type SettingRepository struct{ s *Store }

func (r *SettingRepository) GetSetting(_ context.Context, key string) (string, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.settings[key]
	return v, ok, nil
}

func (r *SettingRepository) PutSetting(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return r.s.persist()
}
