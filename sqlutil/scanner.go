package sqlutil

// Scannable represents an object that can be scanned into a destination.
// It provides a Scan method that populates the destination arguments with the values from the object.
type Scannable interface {
	Scan(dest ...any) error
}

// Rows represents a database result set that can be iterated over.
// It provides methods for closing the result set, checking for errors, and scanning individual rows.
type Rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// ScanRows iterates over database rows and applies the provided scan function to each row.
// Rows are always closed; a close error is reported only when scanning succeeded.
func ScanRows(r Rows, scanFunc func(row Scannable) error) (err error) {
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for r.Next() {
		if err = scanFunc(r); err != nil {
			return err
		}
	}

	return r.Err()
}

// CollectRows scans every row with scan and returns the results in order.
func CollectRows[T any](r Rows, scan func(row Scannable) (T, error)) ([]T, error) {
	var out []T
	err := ScanRows(r, func(row Scannable) error {
		v, err := scan(row)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
