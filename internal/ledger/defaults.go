package ledger

// DrinkSurcharge is added per unit when a cart line includes a drink.
const DrinkSurcharge = 15

// DefaultPath is the document path used when none is configured.
const DefaultPath = "foodstand"

// DefaultDocument returns the seed state written when the remote store holds
// no document yet.
func DefaultDocument() Document {
	return Document{
		MenuItems: []MenuItem{
			{ID: 1, Emoji: "🥘", NameLocal: "咖哩香腸餐盒", NameAlt: "Curry Sausage Meal Box", Price: 100, CanAddDrink: true},
			{ID: 2, Emoji: "🌭", NameLocal: "美式熱狗堡", NameAlt: "American Hot Dog", Price: 75, CanAddDrink: true},
			{ID: 3, Emoji: "🍎", NameLocal: "德國外婆蘋果蛋糕", NameAlt: "German Grandma's Apple Cake", Price: 85, CanAddDrink: true},
			{ID: 4, Emoji: "🍊", NameLocal: "農莊金桔糖漿氣泡水", NameAlt: "Farm Kumquat Syrup Sparkling Water", Price: 35, CanAddDrink: false},
		},
		Orders:       []Order{},
		OrderCounter: 0,
		MaxInventory: map[int]int{1: 50, 2: 50, 3: 30, 4: 100},
		CurrentTheme: DefaultTheme,
		SiteName:     SiteIdentity{Emoji: "🍴", NameLocal: "美食站", NameAlt: "Food Stand"},
		ExtraOptions: []ExtraOption{
			{ID: 1, NameLocal: "加購飲料", NameAlt: "Add Drink", Price: 15},
		},
		NextItemID:        5,
		NextExtraOptionID: 2,
	}
}
