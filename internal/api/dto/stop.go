package dto

type CoordinatesDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StopResponse struct {
	StopID    string  `json:"stop_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Demand    float64 `json:"demand"`
	Available bool    `json:"available"`
}

type ListStopsResponse struct {
	Stops []StopResponse `json:"stops"`
}
