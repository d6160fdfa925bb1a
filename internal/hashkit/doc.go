// Package hashkit provides the hashing primitive used to place virtual
// nodes on the ring and to map flow keys to ring positions. Hashers are
// deterministic and uniform; cryptographic strength is not required.
package hashkit
