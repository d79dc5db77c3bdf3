// Package classify maps an observed artifact (filename plus optional declared
// metadata) to a canonical document type.
//
// Classification never fails: an unmatched artifact is TypeUnknown, which is
// surfaced to the user rather than silently dropped.
package classify

import (
	"strings"

	"taxtrail/internal/document/models"
)

// MetadataTypeKey is the metadata field written at upload time when the
// uploader declared the document type explicitly.
const MetadataTypeKey = "document-type"

type patternEntry struct {
	docType  models.DocumentType
	patterns []string
}

// patternTable is the committed classification priority order: matching is
// first-match-wins top to bottom, so W-2 outranks every 1099 variant.
// Reordering this table changes classification results across the fleet;
// treat the order as part of the contract.
var patternTable = []patternEntry{
	{"W-2", []string{"w2", "w-2", "wage", "tax statement"}},
	{"1099-INT", []string{"1099-int", "1099int", "interest income"}},
	{"1099-DIV", []string{"1099-div", "1099div", "dividend"}},
	{"1099-MISC", []string{"1099-misc", "1099misc", "miscellaneous"}},
	{"1099-NEC", []string{"1099-nec", "1099nec", "non-employee"}},
	{"1099-B", []string{"1099-b", "1099b", "broker"}},
	{"1099-R", []string{"1099-r", "1099r", "retirement"}},
}

// Classify resolves an artifact to a document type. Declared metadata is
// authoritative when present; otherwise the lower-cased filename is matched
// against the pattern table in order.
func Classify(filename string, metadata map[string]string) models.DocumentType {
	if declared, ok := metadata[MetadataTypeKey]; ok && declared != "" {
		return models.DocumentType(declared)
	}

	lower := strings.ToLower(filename)
	for _, entry := range patternTable {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				return entry.docType
			}
		}
	}
	return models.TypeUnknown
}
