package datastore

import (
	"time"

	"github.com/shopspring/decimal"
)

// SampleSeed is a small catalog for local runs without a database.
func SampleSeed() Seed {
	created := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	return Seed{
		Products: []Product{
			{ID: 1, Name: "Yemeni Aqeeq Silver Ring", Description: "Deep red Yemeni aqeeq set in sterling silver.", PriceUSD: decimal.RequireFromString("85.00"), Gender: "men", Occasion: "daily", Stock: 12, IsSunnahDesign: true, Category: "Aqeeq Rings", Material: "Silver 925", Stones: []string{"Aqeeq"}},
			{ID: 2, Name: "Feroza Classic Ring", Description: "Nishapuri turquoise ring with engraved shank.", PriceUSD: decimal.RequireFromString("140.00"), Gender: "men", Occasion: "gift", Stock: 3, Category: "Turquoise Rings", Material: "Silver 925", Stones: []string{"Turquoise"}},
			{ID: 3, Name: "Dur Al-Najaf Ladies Ring", Description: "Clear Najaf crystal in a delicate silver setting.", PriceUSD: decimal.RequireFromString("65.50"), Gender: "women", Occasion: "wedding", Stock: 0, Category: "Rings", Material: "Silver 925", Stones: []string{"Dur Al-Najaf"}},
			{ID: 4, Name: "Aqeeq Tasbih 33", Description: "Prayer beads of polished aqeeq.", PriceUSD: decimal.RequireFromString("45.00"), Gender: "both", Occasion: "ramadan", Stock: 20, Category: "Tasbih", Stones: []string{"Aqeeq"}},
			{ID: 5, Name: "Royal Yaqoot Ring", Description: "Ruby centre stone on a gold band.", PriceUSD: decimal.RequireFromString("320.00"), Gender: "both", Occasion: "eid", Stock: 2, Category: "Rings", Material: "Gold 18K", Stones: []string{"Yaqoot"}},
		},
		Stones: []Stone{
			{ID: 1, Name: "Aqeeq", ArabicName: "عقيق", Color: "red", IslamicSignificance: "Worn by the Prophet and recommended in many narrations.", Meaning: "protection and blessing", SunnahStone: true, Hardness: "6.5-7", RecommendedFor: "daily wear, men and women"},
			{ID: 2, Name: "Turquoise", ArabicName: "فيروزج", Color: "blue", IslamicSignificance: "Associated with victory and ease.", Meaning: "success", Hardness: "5-6", RecommendedFor: "gifts"},
			{ID: 3, Name: "Dur Al-Najaf", ArabicName: "در النجف", Color: "clear", CulturalSignificance: "Quartz found near Najaf.", Meaning: "purity", Hardness: "7"},
		},
		Zones: []DeliveryZone{
			{ZoneName: "Beirut Central", Governorate: "Beirut", DeliveryFeeUSD: decimal.RequireFromString("3.00"), DeliveryDays: "1-2", SecurityLevel: "normal", CurrentlyDelivering: true},
			{ZoneName: "Metn", Governorate: "Mount Lebanon", DeliveryFeeUSD: decimal.RequireFromString("4.00"), DeliveryDays: "2-3", SecurityLevel: "normal", CurrentlyDelivering: true},
			{ZoneName: "Tyre", Governorate: "South", DeliveryFeeUSD: decimal.RequireFromString("6.00"), DeliveryDays: "3-4", SecurityLevel: "elevated", CurrentlyDelivering: true},
		},
		Rates: []CurrencyRate{
			{CurrencyCode: "LBP", RateToUSD: decimal.RequireFromString("89500"), OfficialRate: false, Source: "market", CreatedAt: created},
			{CurrencyCode: "EUR", RateToUSD: decimal.RequireFromString("0.92"), OfficialRate: true, Source: "ecb", CreatedAt: created},
		},
		PaymentMethods: []PaymentMethod{
			{Name: "Cash on Delivery", Type: "cash", FeePercentage: decimal.Zero, Instructions: "Pay the courier in USD or LBP.", IsActive: true},
			{Name: "Whish Money", Type: "wallet", FeePercentage: decimal.RequireFromString("1.5"), Instructions: "Transfer to the store number shown at checkout.", IsActive: true},
			{Name: "Bank Card", Type: "card", FeePercentage: decimal.RequireFromString("2.5"), IsActive: false},
		},
		Reviews: []Review{
			{ProductID: 1, Rating: 5, Title: "Beautiful stone", Comment: "The red is deeper than the photos.", Reviewer: "Hussein", CreatedAt: created},
			{ProductID: 1, Rating: 4, Comment: "Ring runs slightly large.", Reviewer: "Ali", CreatedAt: created.Add(48 * time.Hour)},
		},
	}
}
