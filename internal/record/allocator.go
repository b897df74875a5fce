package record

// NextID returns the ID for a new record in a collection holding records.
//
// The result is max(numeric ids) + 1, or 1 for an empty collection. IDs that
// are not numeric count as 0, so a collection of only string IDs also gets 1.
// String IDs holding a base-10 integer ("7") take part in the max, which keeps
// the result distinct from every existing ID under string comparison.
func NextID(records []Record) ID {
	var max int64
	for _, r := range records {
		n, ok := r.ID.Int()
		if !ok {
			continue
		}
		if n > max {
			max = n
		}
	}
	return IntID(max + 1)
}
