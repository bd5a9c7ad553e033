// Package codec converts between graph data and file formats.
//
// Importers turn producer output into fragments of observations. The json
// and yaml codecs read and write the node-link interchange document
// ({nodes:[{id, attributes}], links:[{source, target, relation}]}) and are
// exact inverses of each other's export. The nmap codec reads nmap XML
// output; the known_hosts codec reads OpenSSH known_hosts files. Neither
// touches the network.
//
// Registry looks codecs up by format name; DetectFormat maps file names
// to formats.
package codec
