package layouts

import "github.com/JonMunkholm/sheetbridge/internal/layout"

// GenericName is the layout for sheets without positional rules.
const GenericName = "generic"

func init() {
	layout.Register(Generic())
}

// Generic finds the header with the longest-row heuristic and types columns
// from the first data row.
func Generic() layout.Layout {
	return layout.Layout{
		Name:        GenericName,
		Description: "Any sheet: longest complete row is the header, types inferred from data",
		Header: layout.HeaderRule{
			Policy:   layout.PolicyLongest,
			ScanRows: 10,
		},
		InferTypes: true,
	}
}
