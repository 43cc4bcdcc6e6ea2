package siri

import "time"

// VehicleActivity is one telemetry record from a vehicle monitoring
// delivery.
type VehicleActivity struct {
	RecordedAtTime          time.Time               `xml:"RecordedAtTime"`
	VehicleMonitoringRef    string                  `xml:"VehicleMonitoringRef"`
	MonitoredVehicleJourney MonitoredVehicleJourney `xml:"MonitoredVehicleJourney"`
}

// MonitoredVehicleJourney describes the journey a vehicle claims to
// be running.
type MonitoredVehicleJourney struct {
	LineRef                 string                   `xml:"LineRef"`
	DirectionName           string                   `xml:"DirectionName"`
	DestinationRef          string                   `xml:"DestinationRef"`
	DestinationName         string                   `xml:"DestinationName"`
	VehicleRef              string                   `xml:"VehicleRef"`
	Monitored               bool                     `xml:"Monitored"`
	Delay                   string                   `xml:"Delay"`
	Bearing                 float64                  `xml:"Bearing"`
	FramedVehicleJourneyRef *FramedVehicleJourneyRef `xml:"FramedVehicleJourneyRef"`
	VehicleLocation         *VehicleLocation         `xml:"VehicleLocation"`
	MonitoredCall           *MonitoredCall           `xml:"MonitoredCall"`
}

type FramedVehicleJourneyRef struct {
	DataFrameRef           string `xml:"DataFrameRef"`
	DatedVehicleJourneyRef string `xml:"DatedVehicleJourneyRef"`
}

// VehicleLocation carries the raw planar coordinate pair, two
// whitespace-separated numbers.
type VehicleLocation struct {
	Coordinates string `xml:"Coordinates"`
}

// MonitoredCall is the stop the vehicle reports progress against.
// The operator emits "no report" sentinels for times it does not
// predict, so every time field stays a string until parsed.
type MonitoredCall struct {
	StopPointRef          string `xml:"StopPointRef"`
	StopPointName         string `xml:"StopPointName"`
	Order                 int    `xml:"Order"`
	VehicleAtStop         bool   `xml:"VehicleAtStop"`
	DestinationDisplay    string `xml:"DestinationDisplay"`
	ArrivalStatus         string `xml:"ArrivalStatus"`
	AimedArrivalTime      string `xml:"AimedArrivalTime"`
	ExpectedArrivalTime   string `xml:"ExpectedArrivalTime"`
	DepartureStatus       string `xml:"DepartureStatus"`
	AimedDepartureTime    string `xml:"AimedDepartureTime"`
	ExpectedDepartureTime string `xml:"ExpectedDepartureTime"`
}

// VehicleID returns the vehicle identifier of the record, preferring
// the journey's VehicleRef over the delivery-level monitoring ref.
func (a *VehicleActivity) VehicleID() string {
	if a.MonitoredVehicleJourney.VehicleRef != "" {
		return ParseRef(a.MonitoredVehicleJourney.VehicleRef)
	}
	return ParseRef(a.VehicleMonitoringRef)
}

// AnnotatedLine is one entry of a lines discovery answer.
type AnnotatedLine struct {
	LineRef   string `xml:"LineRef"`
	LineName  string `xml:"LineName"`
	Monitored bool   `xml:"Monitored"`
}

type vehicleMonitoringEnvelope struct {
	Body struct {
		GetVehicleMonitoringResponse struct {
			Answer struct {
				VehicleMonitoringDelivery struct {
					ResponseTimestamp string            `xml:"ResponseTimestamp"`
					Status            string            `xml:"Status"`
					VehicleActivity   []VehicleActivity `xml:"VehicleActivity"`
				} `xml:"VehicleMonitoringDelivery"`
			} `xml:"Answer"`
		} `xml:"GetVehicleMonitoringResponse"`
	} `xml:"Body"`
}

type linesDiscoveryEnvelope struct {
	Body struct {
		LinesDiscoveryResponse struct {
			Answer struct {
				AnnotatedLineRef []AnnotatedLine `xml:"AnnotatedLineRef"`
			} `xml:"Answer"`
		} `xml:"LinesDiscoveryResponse"`
	} `xml:"Body"`
}
