package cache

// Len counts stored entries, expired or not
func (c *Memory) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
