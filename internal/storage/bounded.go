package storage

// AppendBounded appends item to the list stored under key and drops the
// oldest entries so that at most max remain.
func AppendBounded[T any](s *Store, key string, item T, max int) error {
	return Update(s, key, func(list []T) []T {
		list = append(list, item)
		if max > 0 && len(list) > max {
			list = append([]T(nil), list[len(list)-max:]...)
		}

		return list
	})
}

// List returns the list stored under key, oldest first.
func List[T any](s *Store, key string) ([]T, error) {
	var list []T
	if _, err := s.Get(key, &list); err != nil {
		return nil, err
	}

	return list, nil
}
