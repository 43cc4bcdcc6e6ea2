// Package siri talks to the operator's SIRI Vehicle Monitoring SOAP
// endpoint: lines discovery at startup and one GetVehicleMonitoring
// request per monitored line.
//
// Responses are parsed with encoding/xml into anonymous-struct trees
// matching the delivery envelope, namespace prefixes ignored.
package siri
