package location

// DefaultCatalog returns the built-in governorate reference data. Deployments
// with their own reference source build a Catalog from that instead.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Governorate{
		{ID: "cairo", Name: "Cairo", Cities: []City{
			{ID: "nasr-city", Name: "Nasr City"},
			{ID: "maadi", Name: "Maadi"},
			{ID: "heliopolis", Name: "Heliopolis"},
		}},
		{ID: "giza", Name: "Giza", Cities: []City{
			{ID: "dokki", Name: "Dokki"},
			{ID: "6th-october", Name: "6th of October"},
			{ID: "sheikh-zayed", Name: "Sheikh Zayed"},
		}},
		{ID: "alexandria", Name: "Alexandria", Cities: []City{
			{ID: "smouha", Name: "Smouha"},
			{ID: "miami", Name: "Miami"},
		}},
		{ID: "sharkia", Name: "Sharkia", Cities: []City{
			{ID: "zagazig", Name: "Zagazig"},
			{ID: "10th-ramadan", Name: "10th of Ramadan"},
		}},
		{ID: "dakahlia", Name: "Dakahlia", Cities: []City{
			{ID: "mansoura", Name: "Mansoura"},
		}},
		{ID: "gharbia", Name: "Gharbia", Cities: []City{
			{ID: "tanta", Name: "Tanta"},
			{ID: "mahalla", Name: "El Mahalla El Kubra"},
		}},
		{ID: "qalyubia", Name: "Qalyubia", Cities: []City{
			{ID: "banha", Name: "Banha"},
			{ID: "shubra-el-kheima", Name: "Shubra El Kheima"},
		}},
		{ID: "menoufia", Name: "Menoufia", Cities: []City{
			{ID: "shibin-el-kom", Name: "Shibin El Kom"},
		}},
		{ID: "red-sea", Name: "Red Sea", Cities: []City{
			{ID: "hurghada", Name: "Hurghada"},
		}},
		{ID: "south-sinai", Name: "South Sinai", Cities: []City{
			{ID: "sharm-el-sheikh", Name: "Sharm El Sheikh"},
		}},
	})
}
