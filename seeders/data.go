package seeders

import "github.com/shopspring/decimal"

type catalogEntry struct {
	Name  string
	Price decimal.Decimal
}

var serviceCatalogData = []catalogEntry{
	{Name: "Standard cleaning", Price: decimal.RequireFromString("80.00")},
	{Name: "Deep cleaning", Price: decimal.RequireFromString("150.00")},
	{Name: "Move-out cleaning", Price: decimal.RequireFromString("220.00")},
	{Name: "Window cleaning", Price: decimal.RequireFromString("45.00")},
	{Name: "Carpet shampoo", Price: decimal.RequireFromString("60.00")},
	{Name: "Oven cleaning", Price: decimal.RequireFromString("35.00")},
	{Name: "Fridge cleaning", Price: decimal.RequireFromString("30.00")},
}
