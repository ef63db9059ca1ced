package catalog

type (
	// Policy controls how extracted entries are reconciled with the
	// catalog already on disk.
	Policy struct {
		// Override replaces message and description of ids already on disk.
		Override bool
		// MessagePrefix is prepended to the message of newly appended entries.
		MessagePrefix string
	}

	// MergeStats counts what Merge did with each id.
	MergeStats struct {
		Appended   int
		Preserved  int
		Overridden int
		// Untouched lists ids on disk that were not extracted, in catalog order.
		Untouched []string
	}
)

// Merge reconciles extracted entries with the existing catalog.
//
// Existing entries are never removed and keep their relative order; new ids
// are appended in extraction order with the policy prefix applied. An empty
// extracted message is filled from fallback, then from the id itself.
// existing is not modified.
func Merge(existing *Catalog, extracted []Entry, fallback map[string]string, p Policy) (*Catalog, MergeStats) {
	out := existing.Clone()
	var stats MergeStats
	seen := make(map[string]struct{}, len(extracted))

	for _, e := range extracted {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}

		e = withDefaultMessage(e, fallback)

		if _, onDisk := existing.Get(e.ID); onDisk {
			if !p.Override {
				stats.Preserved++
				continue
			}
			out.Set(e)
			stats.Overridden++
			continue
		}

		e.Message = p.MessagePrefix + e.Message
		out.Set(e)
		stats.Appended++
	}

	for _, id := range existing.IDs() {
		if _, ok := seen[id]; !ok {
			stats.Untouched = append(stats.Untouched, id)
		}
	}
	return out, stats
}

func withDefaultMessage(e Entry, fallback map[string]string) Entry {
	if e.Message != "" {
		return e
	}
	if msg, ok := fallback[e.ID]; ok && msg != "" {
		e.Message = msg
		return e
	}
	e.Message = e.ID
	return e
}
