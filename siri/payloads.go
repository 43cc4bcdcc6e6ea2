package siri

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const linesDiscoveryPayload = `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/" xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <S:Body>
    <sw:LinesDiscovery xmlns:sw="http://wsdl.siri.org.uk" xmlns:siri="http://www.siri.org.uk/siri">
      <Request>
        <siri:RequestTimestamp>%s</siri:RequestTimestamp>
        <siri:RequestorRef>%s</siri:RequestorRef>
        <siri:MessageIdentifier>%s</siri:MessageIdentifier>
      </Request>
      <RequestExtension/>
    </sw:LinesDiscovery>
  </S:Body>
</S:Envelope>`

const vehicleMonitoringPayload = `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/" xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <S:Body>
    <sw:GetVehicleMonitoring xmlns:sw="http://wsdl.siri.org.uk" xmlns:siri="http://www.siri.org.uk/siri">
      <ServiceRequestInfo>
        <siri:RequestTimestamp>%[1]s</siri:RequestTimestamp>
        <siri:RequestorRef>%[2]s</siri:RequestorRef>
        <siri:MessageIdentifier>%[3]s</siri:MessageIdentifier>
      </ServiceRequestInfo>
      <Request version="2.0:FR-IDF-2.4">
        <siri:RequestTimestamp>%[1]s</siri:RequestTimestamp>
        <siri:MessageIdentifier>%[3]s</siri:MessageIdentifier>
        <siri:LineRef>%[4]s</siri:LineRef>
      </Request>
      <RequestExtension/>
    </sw:GetVehicleMonitoring>
  </S:Body>
</S:Envelope>`

func messageIdentifier() string {
	return fmt.Sprintf("SIRI-TO-GTFSRT::Message::%s", uuid.NewString())
}

// LinesDiscoveryRequest renders the lines discovery SOAP body.
func LinesDiscoveryRequest(requestorRef string, now time.Time) string {
	return fmt.Sprintf(linesDiscoveryPayload, now.UTC().Format(time.RFC3339), requestorRef, messageIdentifier())
}

// VehicleMonitoringRequest renders the GetVehicleMonitoring SOAP body
// for one line.
func VehicleMonitoringRequest(requestorRef, lineRef string, now time.Time) string {
	return fmt.Sprintf(vehicleMonitoringPayload, now.UTC().Format(time.RFC3339), requestorRef, messageIdentifier(), lineRef)
}
