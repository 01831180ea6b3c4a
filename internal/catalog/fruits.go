package catalog

import "fruity/internal/types"

func fruit(id, en, fr string) Fruit {
	return Fruit{ID: id, Names: map[types.Language]string{types.English: en, types.French: fr}}
}

// defaultFruits is the shipped bilingual catalog. Adding a fruit means adding
// both names on the same line.
var defaultFruits = []Fruit{
	fruit("apple", "Apple", "Pomme"),
	fruit("banana", "Banana", "Banane"),
	fruit("blueberry", "Blueberry", "Bleuet"),
	fruit("cherry", "Cherry", "Cerise"),
	fruit("dragonfruit", "Dragonfruit", "Fruit du dragon"),
	fruit("grape", "Grape", "Raisin"),
	fruit("kiwi", "Kiwi", "Kiwi"),
	fruit("lemon", "Lemon", "Citron"),
	fruit("mango", "Mango", "Mangue"),
	fruit("orange", "Orange", "Orange"),
	fruit("papaya", "Papaya", "Papaye"),
	fruit("peach", "Peach", "Pêche"),
	fruit("pear", "Pear", "Poire"),
	fruit("pineapple", "Pineapple", "Ananas"),
	fruit("raspberry", "Raspberry", "Framboise"),
	fruit("strawberry", "Strawberry", "Fraise"),
	fruit("watermelon", "Watermelon", "Melon d'eau"),
}

var defaultCatalog = MustNew(defaultFruits)

// Default returns the shipped catalog.
func Default() *Catalog {
	return defaultCatalog
}
