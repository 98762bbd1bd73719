// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tmdb

// Genre is one entry of a TMDB genre table.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the /genre/{movie,tv}/list response.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// Item is a single discover/trending/search result. Movie and TV results
// share the shape except for the title and date field names, so both sets
// of fields are present and the accessors below pick the populated one.
type Item struct {
	ID               int     `json:"id"`
	Title            string  `json:"title,omitempty"`
	Name             string  `json:"name,omitempty"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	OriginalName     string  `json:"original_name,omitempty"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	FirstAirDate     string  `json:"first_air_date,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language"`
	MediaType        string  `json:"media_type,omitempty"`
}

// DisplayTitle returns the localized title regardless of content type.
func (i *Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Name
}

// Date returns the release or first-air date regardless of content type.
func (i *Item) Date() string {
	if i.ReleaseDate != "" {
		return i.ReleaseDate
	}
	return i.FirstAirDate
}

// Page is a paginated result set.
type Page struct {
	Page         int    `json:"page"`
	Results      []Item `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

// CastMember is a credited actor.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CrewMember is a credited crew entry.
type CrewMember struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Job        string `json:"job"`
}

// Credits is the appended credits block of a detail response.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// VideoEntry is one entry of the appended videos block.
type VideoEntry struct {
	Key         string `json:"key"`
	Site        string `json:"site"`
	Type        string `json:"type"`
	Language    string `json:"iso_639_1"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at"`
}

// Videos is the appended videos block.
type Videos struct {
	Results []VideoEntry `json:"results"`
}

// ReleaseDateEntry is one dated release in a country.
type ReleaseDateEntry struct {
	Certification string `json:"certification"`
	Type          int    `json:"type"`
	ReleaseDate   string `json:"release_date"`
}

// CountryReleaseDates groups movie release dates per country.
type CountryReleaseDates struct {
	CountryCode  string             `json:"iso_3166_1"`
	ReleaseDates []ReleaseDateEntry `json:"release_dates"`
}

// ReleaseDates is the appended release_dates block of a movie detail.
type ReleaseDates struct {
	Results []CountryReleaseDates `json:"results"`
}

// ContentRating is a TV content rating for one country.
type ContentRating struct {
	CountryCode string `json:"iso_3166_1"`
	Rating      string `json:"rating"`
}

// ContentRatings is the appended content_ratings block of a TV detail.
type ContentRatings struct {
	Results []ContentRating `json:"results"`
}

// ExternalIDs is the appended external_ids block.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// MovieDetails is the /movie/{id} response with appended blocks.
type MovieDetails struct {
	ID            int           `json:"id"`
	IMDBID        string        `json:"imdb_id"`
	Title         string        `json:"title"`
	OriginalTitle string        `json:"original_title"`
	Overview      string        `json:"overview"`
	PosterPath    string        `json:"poster_path"`
	BackdropPath  string        `json:"backdrop_path"`
	ReleaseDate   string        `json:"release_date"`
	Runtime       int           `json:"runtime"`
	VoteAverage   float64       `json:"vote_average"`
	VoteCount     int           `json:"vote_count"`
	Genres        []Genre       `json:"genres"`
	Credits       Credits       `json:"credits"`
	Videos        Videos        `json:"videos"`
	ReleaseDates  ReleaseDates  `json:"release_dates"`
	SpokenLangs   []SpokenLang  `json:"spoken_languages"`
	Countries     []ProdCountry `json:"production_countries"`
}

type SpokenLang struct {
	Code string `json:"iso_639_1"`
	Name string `json:"name"`
}

type ProdCountry struct {
	Code string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// Season is a season stub inside a TV detail.
type Season struct {
	ID           int    `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
	PosterPath   string `json:"poster_path"`
}

// TVDetails is the /tv/{id} response with appended blocks.
type TVDetails struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	OriginalName     string         `json:"original_name"`
	Overview         string         `json:"overview"`
	PosterPath       string         `json:"poster_path"`
	BackdropPath     string         `json:"backdrop_path"`
	FirstAirDate     string         `json:"first_air_date"`
	LastAirDate      string         `json:"last_air_date"`
	Status           string         `json:"status"`
	InProduction     bool           `json:"in_production"`
	EpisodeRunTime   []int          `json:"episode_run_time"`
	VoteAverage      float64        `json:"vote_average"`
	VoteCount        int            `json:"vote_count"`
	Genres           []Genre        `json:"genres"`
	OriginCountry    []string       `json:"origin_country"`
	NumberOfSeasons  int            `json:"number_of_seasons"`
	NumberOfEpisodes int            `json:"number_of_episodes"`
	Seasons          []Season       `json:"seasons"`
	Credits          Credits        `json:"credits"`
	Videos           Videos         `json:"videos"`
	ContentRatings   ContentRatings `json:"content_ratings"`
	ExternalIDs      ExternalIDs    `json:"external_ids"`
}

// Episode is one episode of a season detail.
type Episode struct {
	ID            int     `json:"id"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// SeasonDetails is the /tv/{id}/season/{n} response.
type SeasonDetails struct {
	ID           int       `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Name         string    `json:"name"`
	AirDate      string    `json:"air_date"`
	Episodes     []Episode `json:"episodes"`
}

// FindResponse is the /find/{external_id} response used to resolve
// cross-reference ids to native ids.
type FindResponse struct {
	MovieResults []Item `json:"movie_results"`
	TVResults    []Item `json:"tv_results"`
}

// Certification is one rating of a country's certification table.
type Certification struct {
	Certification string `json:"certification"`
	Meaning       string `json:"meaning"`
	Order         int    `json:"order"`
}

// CertificationsResponse is the /certification/{movie,tv}/list response.
type CertificationsResponse struct {
	Certifications map[string][]Certification `json:"certifications"`
}

// Language is one entry of /configuration/languages.
type Language struct {
	Code        string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// Country is one entry of /configuration/countries.
type Country struct {
	Code        string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
	NativeName  string `json:"native_name"`
}

// Provider is one watch provider entry.
type Provider struct {
	ID       int    `json:"provider_id"`
	Name     string `json:"provider_name"`
	LogoPath string `json:"logo_path"`
	Priority int    `json:"display_priority"`
}

// ProvidersResponse is the /watch/providers/{movie,tv} response.
type ProvidersResponse struct {
	Results []Provider `json:"results"`
}

// NamedResult is a person/company/keyword search result.
type NamedResult struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NamedPage is a paginated person/company/keyword search response.
type NamedPage struct {
	Page         int           `json:"page"`
	Results      []NamedResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}
