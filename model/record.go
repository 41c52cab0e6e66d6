package model

// Reading is one sample from the environment sensors.
type Reading struct {
	// Degrees Celsius.
	Temperature float64
	// Relative humidity, percent.
	Humidity float64
	Latitude  float64
	Longitude float64
}

// Record keys. They follow the field names written by the first generation of
// stations so existing chain files keep the same shape.
const (
	RecordPayloadKey     = "qr_payload"
	RecordTimestampKey   = "timestamp"
	RecordTemperatureKey = "temperatura_C"
	RecordHumidityKey    = "humedad_%"
	RecordLatitudeKey    = "lat"
	RecordLongitudeKey   = "lon"
)

// EnrichedRecord merges a verified payload with the scan time and a sensor reading.
func EnrichedRecord(p Payload, timestamp string, r Reading) map[string]interface{} {
	return map[string]interface{}{
		RecordPayloadKey:     map[string]interface{}(p),
		RecordTimestampKey:   timestamp,
		RecordTemperatureKey: r.Temperature,
		RecordHumidityKey:    r.Humidity,
		RecordLatitudeKey:    r.Latitude,
		RecordLongitudeKey:   r.Longitude,
	}
}
