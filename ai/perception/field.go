package perception

// Field is a shared board of short-lived stimuli, e.g. shouts and sirens
// registered by gameplay code. It implements Source for every agent.
type Field struct {
	live []fieldEntry
}

type fieldEntry struct {
	stimulus Stimulus
	ttl      float64
}

func NewField() *Field {
	return &Field{}
}

// Emit registers s for ttl seconds.
func (f *Field) Emit(s Stimulus, ttl float64) {
	if ttl <= 0 {
		return
	}
	f.live = append(f.live, fieldEntry{stimulus: s, ttl: ttl})
}

// Update ages every stimulus and drops the expired ones.
func (f *Field) Update(dt float64) {
	if dt <= 0 {
		return
	}
	kept := f.live[:0]
	for _, e := range f.live {
		e.ttl -= dt
		if e.ttl > 0 {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(f.live); i++ {
		f.live[i] = fieldEntry{}
	}
	f.live = kept
}

func (f *Field) Stimuli() []Stimulus {
	if f == nil || len(f.live) == 0 {
		return nil
	}
	out := make([]Stimulus, len(f.live))
	for i, e := range f.live {
		out[i] = e.stimulus
	}
	return out
}

func (f *Field) Len() int {
	return len(f.live)
}

// StaticSource is a fixed list of stimuli.
type StaticSource []Stimulus

func (s StaticSource) Stimuli() []Stimulus { return s }

// SourceFunc adapts a function to Source.
type SourceFunc func() []Stimulus

func (f SourceFunc) Stimuli() []Stimulus { return f() }

// Sources merges several sources into one, in order.
type Sources []Source

func (s Sources) Stimuli() []Stimulus {
	var out []Stimulus
	for _, src := range s {
		if src == nil {
			continue
		}
		out = append(out, src.Stimuli()...)
	}
	return out
}
