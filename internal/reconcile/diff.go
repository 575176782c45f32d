package reconcile

// MaxChunk bounds the number of ids sent in a single delete statement.
const MaxChunk = 1000

// Diff is the set difference between a remote and a local id set.
type Diff struct {
	ToInsert []string
	ToDelete []string
	ToCheck  []string
}

// computeDiff keeps remote order for ToInsert/ToCheck and local order for
// ToDelete. Duplicate ids are counted once.
func computeDiff(remote, local []string) Diff {
	localSet := make(map[string]struct{}, len(local))
	for _, id := range local {
		localSet[id] = struct{}{}
	}
	remoteSet := make(map[string]struct{}, len(remote))

	var d Diff
	for _, id := range remote {
		if _, seen := remoteSet[id]; seen {
			continue
		}
		remoteSet[id] = struct{}{}
		if _, ok := localSet[id]; ok {
			d.ToCheck = append(d.ToCheck, id)
		} else {
			d.ToInsert = append(d.ToInsert, id)
		}
	}
	for _, id := range local {
		if _, ok := remoteSet[id]; ok {
			continue
		}
		if _, ok := localSet[id]; !ok {
			continue
		}
		delete(localSet, id)
		d.ToDelete = append(d.ToDelete, id)
	}
	return d
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxChunk
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
