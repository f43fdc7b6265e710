package filter

import (
	"strconv"
	"strings"
)

// Derive maps a console path to the filter describing the events that view
// needs. It never fails: segments that cannot be used are skipped.
func Derive(path string) Filter {
	segments := Segments(path)
	if len(segments) == 0 {
		return Filter{}
	}

	var f Filter
	switch segments[0] {
	case "home":
		f.Favorites = true
	case "project":
		// a lone "project" segment is the creation form
		if len(segments) >= 2 {
			f.ProjectKey = segments[1]
		}
		if len(segments) >= 3 {
			deriveProjectChild(segments, &f)
		}
	case "settings":
		if len(segments) == 2 && segments[1] == "queue" {
			f.Queue = true
		}
	}
	return f
}

func deriveProjectChild(segments []string, f *Filter) {
	switch segments[2] {
	case "pipeline":
		if len(segments) >= 4 {
			f.PipelineName = segments[3]
		}
	case "application":
		if len(segments) >= 4 {
			f.ApplicationName = segments[3]
		}
	case "environment":
		if len(segments) >= 4 {
			f.EnvironmentName = segments[3]
		}
	case "workflow":
		if len(segments) >= 4 {
			f.WorkflowName = segments[3]
		}
		if len(segments) >= 6 {
			f.WorkflowRunNumber = parseID(segments[5])
		}
		if len(segments) >= 8 {
			f.WorkflowNodeRunID = parseID(segments[7])
		}
	}
}

// Segments splits a path into its "/" separated parts after dropping any
// query string or fragment and the leading empty segment.
func Segments(path string) []string {
	path = StripQuery(path)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// StripQuery drops a trailing "?query" and "#fragment" from s.
func StripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
