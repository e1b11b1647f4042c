package transform

// KeyCount pairs a key value with the number of rows carrying it.
type KeyCount struct {
	Key   string
	Count int
}

// CountKeys tallies the key column across rows, preserving the order in
// which keys first appear. Rows too short to have the key column are counted
// under the empty key.
func CountKeys(rows []Row, keyColumn int) []KeyCount {
	index := make(map[string]int)
	var counts []KeyCount
	for _, row := range rows {
		key := ""
		if keyColumn >= 0 && keyColumn < len(row) {
			key = row[keyColumn]
		}
		pos, ok := index[key]
		if !ok {
			pos = len(counts)
			index[key] = pos
			counts = append(counts, KeyCount{Key: key})
		}
		counts[pos].Count++
	}
	return counts
}

// RetainedKeys returns the keys whose count is at least threshold, in
// first-seen order.
func RetainedKeys(counts []KeyCount, threshold int) []string {
	var keys []string
	for _, kc := range counts {
		if kc.Count >= threshold {
			keys = append(keys, kc.Key)
		}
	}
	return keys
}
