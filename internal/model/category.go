package model

type Category string

var TipCategories = []Category{
	"Restaurantes",
	"Hotéis",
	"Museus",
	"Praias",
	"Natureza",
	"Compras",
}

var GuideCategories = []Category{
	"Roteiro",
	"Restaurantes",
	"Vida Noturna",
	"Cultura",
	"Natureza",
	"Compras",
}

func IsTipCategory(c Category) bool {
	return contains(TipCategories, c)
}

func IsGuideCategory(c Category) bool {
	return contains(GuideCategories, c)
}

func contains(set []Category, c Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}
