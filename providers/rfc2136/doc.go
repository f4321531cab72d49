// Package rfc2136 implements the dyndns provider interface for authoritative
// servers that accept RFC 2136 dynamic updates, such as BIND, Knot DNS,
// PowerDNS and Windows DNS Server.
//
// The server, key name, algorithm and transport come from configuration:
//
//	DYNDNS_RFC2136_SERVER=ns1.example.com:53
//	DYNDNS_RFC2136_TSIG_KEY_NAME=dyndns.
//	DYNDNS_RFC2136_TSIG_ALGORITHM=hmac-sha256
//	DYNDNS_RFC2136_USE_TCP=false
//
// The base64 TSIG secret is read from Vault like every other credential,
// under the "tsig_secret" field by default.
//
// ResolveRecord queries the primary directly and requires exactly one A
// record. UpdateRecord deletes the A RRset and inserts the new address in one
// UPDATE message. A rejected signature unwraps to provider.ErrUnauthorized
// and, like other update failures, is retried on the next cycle.
package rfc2136
