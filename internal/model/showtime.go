package model

// ShowtimeKey is the compound identifier that scopes all seat state to
// one screening.  Two showtimes never share holds or reservations.
//
// Fields:
//  MovieID – identifier of the movie being screened.
//  Fecha   – screening date, "YYYY-MM-DD".
//  Hora    – screening time, "HH:MM".
//  Sala    – room name, e.g. "Sala 1".
type ShowtimeKey struct {
	MovieID string `json:"movie_id"`
	Fecha   string `json:"fecha"`
	Hora    string `json:"hora"`
	Sala    string `json:"sala"`
}

// IsZero reports whether any component of the key is missing.
func (k ShowtimeKey) IsZero() bool {
	return k.MovieID == "" || k.Fecha == "" || k.Hora == "" || k.Sala == ""
}
