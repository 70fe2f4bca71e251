package cache

import (
	"fmt"
	"strings"
)

type Prefix string

const (
	Trending      Prefix = "feed:trending"
	RateLimit     Prefix = "ratelimit"
	SchedulerLock Prefix = "lock:scheduler"
)

// Key joins the prefix and parts with ':'.
func (p Prefix) Key(parts ...any) string {
	if len(parts) == 0 {
		return string(p)
	}
	s := make([]string, len(parts))
	for i, part := range parts {
		s[i] = fmt.Sprint(part)
	}
	return fmt.Sprintf("%s:%s", p, strings.Join(s, ":"))
}
