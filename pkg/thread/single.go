package thread

// Single is the unthreaded back-end: every caller is thread 0.
type Single struct {
	inited bool
}

func NewSingle() *Single {
	return &Single{}
}

func (r *Single) Init(maxthreads int, onNew NewThreadFunc) error {
	if onNew != nil {
		if err := onNew(0); err != nil {
			return err
		}
	}
	r.inited = true

	return nil
}

func (r *Single) Finalize() { r.inited = false }

func (r *Single) Current() (int, error) { return 0, nil }

func (r *Single) NumThreads() int { return 1 }

func (r *Single) Mapping() []uint64 { return []uint64{0} }

func (r *Single) Name() string { return "single" }
