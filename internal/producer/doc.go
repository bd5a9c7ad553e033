// Package producer connects observation sources to the entity graph.
//
// A Producer yields fragments; the Registry runs producers concurrently
// and hands their fragments to a single ApplyFunc one at a time, keeping
// graph mutation behind a single writer. FileProducer reads producer output
// files (interchange documents, nmap XML, known_hosts) through the codec
// registry.
package producer
