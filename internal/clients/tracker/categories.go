package tracker

// Category maps one MyAnonamouse browse category to the Torznab category
// ids Prowlarr-compatible clients expect in capability listings.
type Category struct {
	TrackerID  int    `json:"trackerId"`
	Name       string `json:"name"`
	TorznabIDs []int  `json:"torznabIds"`
}

// Categories is the static MyAnonamouse category table. The tracker has no
// capability endpoint, so the table is maintained by hand.
var Categories = []Category{
	{TrackerID: 13, Name: "Audiobooks", TorznabIDs: []int{3030}},
	{TrackerID: 39, Name: "Audiobooks - Action/Adventure", TorznabIDs: []int{3030}},
	{TrackerID: 40, Name: "Audiobooks - Art", TorznabIDs: []int{3030}},
	{TrackerID: 41, Name: "Audiobooks - Biographical", TorznabIDs: []int{3030}},
	{TrackerID: 42, Name: "Audiobooks - Business", TorznabIDs: []int{3030}},
	{TrackerID: 43, Name: "Audiobooks - Computer/Internet", TorznabIDs: []int{3030}},
	{TrackerID: 44, Name: "Audiobooks - Crafts", TorznabIDs: []int{3030}},
	{TrackerID: 45, Name: "Audiobooks - Crime/Thriller", TorznabIDs: []int{3030}},
	{TrackerID: 46, Name: "Audiobooks - Fantasy", TorznabIDs: []int{3030}},
	{TrackerID: 47, Name: "Audiobooks - Food", TorznabIDs: []int{3030}},
	{TrackerID: 48, Name: "Audiobooks - General Fiction", TorznabIDs: []int{3030}},
	{TrackerID: 49, Name: "Audiobooks - General Non-Fic", TorznabIDs: []int{3030}},
	{TrackerID: 50, Name: "Audiobooks - Historical Fiction", TorznabIDs: []int{3030}},
	{TrackerID: 51, Name: "Audiobooks - History", TorznabIDs: []int{3030}},
	{TrackerID: 52, Name: "Audiobooks - Home/Garden", TorznabIDs: []int{3030}},
	{TrackerID: 53, Name: "Audiobooks - Horror", TorznabIDs: []int{3030}},
	{TrackerID: 54, Name: "Audiobooks - Humor", TorznabIDs: []int{3030}},
	{TrackerID: 55, Name: "Audiobooks - Instructional", TorznabIDs: []int{3030}},
	{TrackerID: 56, Name: "Audiobooks - Juvenile", TorznabIDs: []int{3030}},
	{TrackerID: 57, Name: "Audiobooks - Language", TorznabIDs: []int{3030}},
	{TrackerID: 58, Name: "Audiobooks - Literary Classics", TorznabIDs: []int{3030}},
	{TrackerID: 59, Name: "Audiobooks - Math/Science/Tech", TorznabIDs: []int{3030}},
	{TrackerID: 83, Name: "Audiobooks - Medical", TorznabIDs: []int{3030}},
	{TrackerID: 84, Name: "Audiobooks - Mystery", TorznabIDs: []int{3030}},
	{TrackerID: 85, Name: "Audiobooks - Nature", TorznabIDs: []int{3030}},
	{TrackerID: 86, Name: "Audiobooks - Philosophy", TorznabIDs: []int{3030}},
	{TrackerID: 87, Name: "Audiobooks - Pol/Soc/Relig", TorznabIDs: []int{3030}},
	{TrackerID: 88, Name: "Audiobooks - Recreation", TorznabIDs: []int{3030}},
	{TrackerID: 89, Name: "Audiobooks - Romance", TorznabIDs: []int{3030}},
	{TrackerID: 97, Name: "Audiobooks - Science Fiction", TorznabIDs: []int{3030}},
	{TrackerID: 98, Name: "Audiobooks - Self-Help", TorznabIDs: []int{3030}},
	{TrackerID: 99, Name: "Audiobooks - Travel/Adventure", TorznabIDs: []int{3030}},
	{TrackerID: 100, Name: "Audiobooks - True Crime", TorznabIDs: []int{3030}},
	{TrackerID: 106, Name: "Audiobooks - Urban Fantasy", TorznabIDs: []int{3030}},
	{TrackerID: 108, Name: "Audiobooks - Western", TorznabIDs: []int{3030}},
	{TrackerID: 111, Name: "Audiobooks - Young Adult", TorznabIDs: []int{3030}},
	{TrackerID: 119, Name: "Audiobooks - Magazines/Newspapers", TorznabIDs: []int{3030}},
	{TrackerID: 14, Name: "E-Books", TorznabIDs: []int{7020}},
	{TrackerID: 15, Name: "Musicology", TorznabIDs: []int{3040}},
	{TrackerID: 16, Name: "Radio", TorznabIDs: []int{3030}},
}

// CategoryName resolves a tracker category id to its display name.
func CategoryName(trackerID int) string {
	for _, cat := range Categories {
		if cat.TrackerID == trackerID {
			return cat.Name
		}
	}
	return "Unknown"
}
