package model

const (
	DrinkEspresso   = "Espresso"
	DrinkAmericano  = "Americano"
	DrinkLatte      = "Latte"
	DrinkCappuccino = "Cappuccino"
	DrinkColdBrew   = "Cold Brew"
	DrinkSpecialty  = "Specialty"
)

// Menu lists the drinks a customer can order. Americano is priced by
// PrepMinutes but is not on the board.
var Menu = []string{DrinkEspresso, DrinkLatte, DrinkCappuccino, DrinkColdBrew, DrinkSpecialty}

const defaultPrepMinutes = 2

// PrepMinutes returns the fixed preparation time of a drink.
func PrepMinutes(drink string) int {
	switch drink {
	case DrinkColdBrew:
		return 1
	case DrinkEspresso, DrinkAmericano:
		return 2
	case DrinkCappuccino, DrinkLatte:
		return 4
	case DrinkSpecialty:
		return 6
	default:
		return defaultPrepMinutes
	}
}

// KnownDrink reports whether the counter can prepare drink.
func KnownDrink(drink string) bool {
	if drink == DrinkAmericano {
		return true
	}
	for _, d := range Menu {
		if d == drink {
			return true
		}
	}
	return false
}
