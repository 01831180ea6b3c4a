package ui

import (
	"strings"

	"fruity/internal/types"
)

// Key names a user-facing string.
type Key string

const (
	KeyTabHarvest       Key = "tab.harvest"
	KeyTabNotes         Key = "tab.notes"
	KeyTabShed          Key = "tab.shed"
	KeyTopPicks         Key = "topPicks"
	KeyBestRatedIn      Key = "bestRatedIn"
	KeyNoTopPicks       Key = "noTopPicks"
	KeyAllFruits        Key = "allFruits"
	KeyHistory          Key = "allLogs"
	KeyNoLogs           Key = "noLogs"
	KeyPreferences      Key = "appPreferences"
	KeyAPIURL           Key = "apiUrlLabel"
	KeyRegion           Key = "region"
	KeyLanguage         Key = "language"
	KeyLogButton        Key = "logButton"
	KeySaveLog          Key = "saveLog"
	KeySaveURL          Key = "saveUrl"
	KeyLoading          Key = "loading"
	KeyServerWaking     Key = "serverWaking"
	KeyServerError      Key = "serverError"
	KeyMisconfigured    Key = "misconfigured"
	KeyConfirmDelete    Key = "confirmDelete"
	KeySearch           Key = "search"
	KeySort             Key = "sort"
	KeyWeighted         Key = "weighted"
	KeyColFruit         Key = "col.fruit"
	KeyColNow           Key = "col.now"
	KeyColAllTime       Key = "col.allTime"
	KeyColCount         Key = "col.count"
	KeyColSeason        Key = "col.season"
	KeyColDate          Key = "col.date"
	KeyColOrigin        Key = "col.origin"
	KeyColStore         Key = "col.store"
	KeyColRating        Key = "col.rating"
	KeyColRegion        Key = "col.region"
	KeyColMonth         Key = "col.month"
	KeyEntries          Key = "entries"
	KeySaved            Key = "saved"
	KeyDeleted          Key = "deleted"
	KeyReportTitle      Key = "reportTitle"
	KeyReportTopPicks   Key = "reportTopPicks"
	KeyReportRanking    Key = "reportRanking"
	KeyReportSeasons    Key = "reportSeasons"
	KeyReportGenerated  Key = "reportGenerated"
	KeyReportNoData     Key = "reportNoData"
	KeyFieldDate        Key = "field.date"
	KeyFieldRatingRange Key = "field.ratingRange"
)

var catalogStrings = map[types.Language]map[Key]string{
	types.English: {
		KeyTabHarvest:       "Harvest",
		KeyTabNotes:         "Notes",
		KeyTabShed:          "Shed",
		KeyTopPicks:         "Top Picks",
		KeyBestRatedIn:      "Best in {region} now.",
		KeyNoTopPicks:       "Nothing rated 3.5 or better this month yet.",
		KeyAllFruits:        "All fruits",
		KeyHistory:          "Your History",
		KeyNoLogs:           "No logs yet.",
		KeyPreferences:      "Preferences",
		KeyAPIURL:           "Backend API URL",
		KeyRegion:           "Region",
		KeyLanguage:         "Language",
		KeyLogButton:        "Log Fruit",
		KeySaveLog:          "Save to Cloud",
		KeySaveURL:          "Save URL",
		KeyLoading:          "Loading...",
		KeyServerWaking:     "Server is waking up...",
		KeyServerError:      "Cloud connection issue.",
		KeyMisconfigured:    "The backend URL looks wrong (404). Check it in the Shed.",
		KeyConfirmDelete:    "Delete this log? (y/n)",
		KeySearch:           "Search",
		KeySort:             "Sort",
		KeyWeighted:         "recent ratings weigh more",
		KeyColFruit:         "Fruit",
		KeyColNow:           "This month",
		KeyColAllTime:       "All time",
		KeyColCount:         "Logs",
		KeyColSeason:        "Season",
		KeyColDate:          "Date",
		KeyColOrigin:        "Origin",
		KeyColStore:         "Store",
		KeyColRating:        "Rating",
		KeyColRegion:        "Region",
		KeyColMonth:         "Month",
		KeyEntries:          "{n} logs",
		KeySaved:            "Saved.",
		KeyDeleted:          "Deleted.",
		KeyReportTitle:      "Fruit report for {region}",
		KeyReportTopPicks:   "Top picks this month",
		KeyReportRanking:    "Ranking",
		KeyReportSeasons:    "Seasons",
		KeyReportGenerated:  "Generated {date} from {n} logs.",
		KeyReportNoData:     "No logs for this region yet.",
		KeyFieldDate:        "Date (YYYY-MM-DD)",
		KeyFieldRatingRange: "Rating (1-5)",
	},
	types.French: {
		KeyTabHarvest:       "Récolte",
		KeyTabNotes:         "Notes",
		KeyTabShed:          "Atelier",
		KeyTopPicks:         "Meilleur Choix",
		KeyBestRatedIn:      "Le top en {region}.",
		KeyNoTopPicks:       "Rien de noté 3,5 ou plus ce mois-ci.",
		KeyAllFruits:        "Tous les fruits",
		KeyHistory:          "Historique",
		KeyNoLogs:           "Aucune note pour l'instant.",
		KeyPreferences:      "Préférences",
		KeyAPIURL:           "URL de l'API Backend",
		KeyRegion:           "Région",
		KeyLanguage:         "Langue",
		KeyLogButton:        "Ajouter",
		KeySaveLog:          "Enregistrer Cloud",
		KeySaveURL:          "Enregistrer l'URL",
		KeyLoading:          "Chargement...",
		KeyServerWaking:     "Le serveur se réveille...",
		KeyServerError:      "Connexion Cloud impossible.",
		KeyMisconfigured:    "L'URL du backend semble erronée (404). Vérifiez-la dans l'Atelier.",
		KeyConfirmDelete:    "Supprimer cette note? (o/n)",
		KeySearch:           "Recherche",
		KeySort:             "Tri",
		KeyWeighted:         "les notes récentes comptent plus",
		KeyColFruit:         "Fruit",
		KeyColNow:           "Ce mois",
		KeyColAllTime:       "Toujours",
		KeyColCount:         "Notes",
		KeyColSeason:        "Saison",
		KeyColDate:          "Date",
		KeyColOrigin:        "Origine",
		KeyColStore:         "Magasin",
		KeyColRating:        "Note",
		KeyColRegion:        "Région",
		KeyColMonth:         "Mois",
		KeyEntries:          "{n} notes",
		KeySaved:            "Enregistré.",
		KeyDeleted:          "Supprimé.",
		KeyReportTitle:      "Bilan des fruits en {region}",
		KeyReportTopPicks:   "Meilleurs choix du mois",
		KeyReportRanking:    "Classement",
		KeyReportSeasons:    "Saisons",
		KeyReportGenerated:  "Généré le {date} à partir de {n} notes.",
		KeyReportNoData:     "Aucune note pour cette région.",
		KeyFieldDate:        "Date (AAAA-MM-JJ)",
		KeyFieldRatingRange: "Note (1-5)",
	},
}

// T returns the string for key in lang, falling back to English and then
// to the key itself.
func T(lang types.Language, key Key) string {
	if s, ok := catalogStrings[lang][key]; ok {
		return s
	}
	if s, ok := catalogStrings[types.English][key]; ok {
		return s
	}
	return string(key)
}

// Tf is T with {name} placeholders replaced from pairs (name, value, ...).
func Tf(lang types.Language, key Key, pairs ...string) string {
	s := T(lang, key)
	for i := 0; i+1 < len(pairs); i += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[i]+"}", pairs[i+1])
	}
	return s
}

var monthNames = map[types.Language][12]string{
	types.English: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	types.French:  {"janv", "févr", "mars", "avr", "mai", "juin", "juil", "août", "sept", "oct", "nov", "déc"},
}

// MonthName returns a short month label in lang.
func MonthName(lang types.Language, m int) string {
	names, ok := monthNames[lang]
	if !ok {
		names = monthNames[types.English]
	}
	if m < 1 || m > 12 {
		return "?"
	}
	return names[m-1]
}
