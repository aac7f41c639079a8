package normalize

import "strings"

// listingKeys are the container keys a file-listing object may expose the
// path list under, consulted in declared order.
var listingKeys = []string{"files", "all", "charts"}

// Listing extracts relative artifact paths from a file-listing document.
// Accepts a bare list or an object exposing the list under one of the
// recognized keys; any other shape yields an empty result.
func Listing(doc any) []string {
	list, ok := asList(doc)
	if !ok {
		m, isMap := asMap(doc)
		if !isMap {
			return nil
		}
		for _, key := range listingKeys {
			if l, found := asList(m[key]); found {
				list = l
				break
			}
		}
		if list == nil {
			return nil
		}
	}

	paths := make([]string, 0, len(list))
	for _, v := range list {
		p := str(v)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, "./")
		p = strings.TrimPrefix(p, "/")
		// Bare chart filenames predate the listing carrying directories.
		if !strings.Contains(p, "/") {
			p = "charts/" + p
		}
		paths = append(paths, p)
	}
	return paths
}
