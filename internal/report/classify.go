// SPDX-License-Identifier: MIT

// Package report builds the learning-object tables: it classifies LibGuides
// link-crawler URLs by embedded-object platform, joins the Panopto subset
// against an exported recordings CSV, and writes the summary tables.
package report

import "regexp"

// LOType is the platform a learning-object URL points at.
type LOType string

const (
	TypePanopto    LOType = "Panopto"
	TypeThingLink  LOType = "ThingLink"
	TypeArticulate LOType = "Articulate"
	TypeWordpress  LOType = "Wordpress"
	TypePowtoon    LOType = "Powtoon"
	TypeOther      LOType = "Other"
)

var (
	rePanopto    = regexp.MustCompile(`(?i)panopto`)
	reThingLink  = regexp.MustCompile(`(?i)thinglink`)
	reArticulate = regexp.MustCompile(`(?i)articulate`)
	reWordpress  = regexp.MustCompile(`(?i)wordpress`)
	rePowtoon    = regexp.MustCompile(`(?i)powtoon`)

	rePanoptoID = regexp.MustCompile(`id=([^&=]+)`)
)

// Classify maps a URL to its learning-object type. The second return is
// false when the URL matches none of the known platforms; such URLs are
// excluded from the tables entirely. Panopto wins when a URL mentions more
// than one platform.
func Classify(url string) (LOType, bool) {
	switch {
	case rePanopto.MatchString(url):
		return TypePanopto, true
	case reThingLink.MatchString(url):
		return TypeThingLink, true
	case reArticulate.MatchString(url):
		return TypeArticulate, true
	case reWordpress.MatchString(url):
		return TypeWordpress, true
	case rePowtoon.MatchString(url):
		return TypePowtoon, true
	}
	return TypeOther, false
}

// PanoptoID extracts the session ID from a viewer URL's id query parameter.
// Returns "" when the URL carries no id parameter.
func PanoptoID(url string) string {
	m := rePanoptoID.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
