package history

// Set 是按插入顺序保存的 link 集合；重复 Add 不改变顺序
type Set struct {
	order []string
	index map[string]struct{}
}

func NewSet(links ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(links))}
	for _, l := range links {
		s.Add(l)
	}
	return s
}

// Add 返回 link 是否为新加入
func (s *Set) Add(link string) bool {
	if _, ok := s.index[link]; ok {
		return false
	}
	s.index[link] = struct{}{}
	s.order = append(s.order, link)
	return true
}

func (s *Set) Has(link string) bool {
	_, ok := s.index[link]
	return ok
}

func (s *Set) Len() int {
	return len(s.order)
}

// Links 返回按插入顺序排列的副本
func (s *Set) Links() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Trim 超过 limit 时淘汰最早插入的条目，只保留最近的 limit 条
func (s *Set) Trim(limit int) {
	if limit < 0 || len(s.order) <= limit {
		return
	}
	drop := len(s.order) - limit
	for _, l := range s.order[:drop] {
		delete(s.index, l)
	}
	kept := make([]string, limit)
	copy(kept, s.order[drop:])
	s.order = kept
}
