package model

// Country names used by the synthetic dataset, mapped to ISO 3166-1 alpha-3 codes
var CountryISO = map[string]string{
	"Ukraine":        "UKR",
	"USA":            "USA",
	"Germany":        "DEU",
	"Poland":         "POL",
	"France":         "FRA",
	"China":          "CHN",
	"United Kingdom": "GBR",
	"Canada":         "CAN",
	"India":          "IND",
	"Japan":          "JPN",
	"Australia":      "AUS",
	"Brazil":         "BRA",
	"South Korea":    "KOR",
	"Italy":          "ITA",
	"Spain":          "ESP",
	"Netherlands":    "NLD",
	"Sweden":         "SWE",
	"Singapore":      "SGP",
	"Israel":         "ISR",
	"UAE":            "ARE",
}
