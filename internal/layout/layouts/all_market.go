package layouts

import "github.com/JonMunkholm/sheetbridge/internal/layout"

// AllMarketName is the production layout used for the market overview sheets.
const AllMarketName = "all-market"

func init() {
	layout.Register(AllMarket())
}

// AllMarket returns the market overview layout. The header sits on the second
// row, the third row holds sub-headers and data starts on the fourth.
func AllMarket() layout.Layout {
	return layout.Layout{
		Name:        AllMarketName,
		Description: "Market overview sheets with a split category column",
		FirstColumn: "№",
		Header: layout.HeaderRule{
			Policy:    layout.PolicyFixed,
			HeaderRow: 1,
			DataRow:   3,
		},
		Category: layout.CategoryRule{
			Column:    "Категория",
			InsertAt:  31,
			Parts:     []string{"Категория.1", "Категория.2", "Категория.3", "Категория.4", "Категория.5"},
			Separator: "/",
			KeepCell:  true,
		},
		// Original sheet positions, before the category block is inserted.
		Types: layout.TypeTable{
			Int64:    layout.Positions{7, 12, 15, 16, 17, 18, 19, 20, 21, 28, 29, 31, 32, 33},
			Currency: layout.Positions{8, 10, 11},
			DateTime: layout.Positions{13},
			Double:   layout.Positions{9, 10, 11, 14},
			Boolean:  layout.Positions{22},
		},
		Decode: layout.DecodeRules{
			Int64:   layout.Positions{7, 8, 10, 11, 12, 29, 31, 32, 33},
			Double:  layout.Positions{14},
			Boolean: layout.Positions{22},
			ZeroColumns: []string{
				"Москва", "Санкт-Петербург", "Казань", "Краснодар",
				"Екатеринбург", "Новосибирск", "Хабаровск",
			},
			Strip: "₽",
		},
	}
}
