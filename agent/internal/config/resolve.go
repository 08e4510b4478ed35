package config

// Target is the fully resolved scrape configuration for one logical target:
// either the global collector settings or one named section layered on top.
type Target struct {
	// Section is the section name, empty for the global target.
	Section string

	Method                 string
	URL                    string
	User                   string
	Pass                   string
	SocketPath             string
	IgnoreNonAggregateRows bool
}

// Resolve layers section over global. Every non-nil field of section
// overrides the matching global key; a nil section inherits everything.
func Resolve(name string, section *SectionConfig, global CollectorConfig) Target {
	t := Target{
		Section:                name,
		Method:                 global.Method,
		URL:                    global.URL,
		User:                   global.User,
		Pass:                   global.Password(),
		SocketPath:             global.SocketPath,
		IgnoreNonAggregateRows: global.IgnoreNonAggregateRows,
	}
	if section == nil {
		return t
	}
	if section.URL != nil {
		t.URL = *section.URL
	}
	if section.User != nil {
		t.User = *section.User
	}
	if section.Pass != nil {
		t.Pass = *section.Pass
	}
	if section.SocketPath != nil {
		t.SocketPath = *section.SocketPath
	}
	if section.IgnoreNonAggregateRows != nil {
		t.IgnoreNonAggregateRows = *section.IgnoreNonAggregateRows
	}
	return t
}

// Targets returns one resolved Target per configured section, in list order.
// With no sections configured it returns the single global target.
func (c CollectorConfig) Targets() []Target {
	if len(c.Sections) == 0 {
		return []Target{Resolve("", nil, c)}
	}
	out := make([]Target, 0, len(c.Sections))
	for _, name := range c.Sections {
		var sec *SectionConfig
		if s, ok := c.SectionOverrides[name]; ok {
			sec = &s
		}
		out = append(out, Resolve(name, sec, c))
	}
	return out
}
