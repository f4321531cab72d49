// Package dnsupdate sends RFC 2136 dynamic updates for a single A record.
//
// It works with any server that accepts dynamic updates, including BIND,
// Knot DNS, PowerDNS and Windows DNS Server. Updates may be signed with a
// TSIG key (RFC 8945) using HMAC-SHA256, HMAC-SHA512 or HMAC-MD5.
//
// # Usage
//
//	client, err := dnsupdate.NewClient(&dnsupdate.Config{
//	    Server:        "ns1.example.com",
//	    Zone:          "example.com.",
//	    TSIGKeyName:   "dyndns.",
//	    TSIGSecret:    secret, // base64, read from Vault
//	    TSIGAlgorithm: "hmac-sha256",
//	})
//	if err != nil {
//	    return err
//	}
//
//	addrs, err := client.QueryA(ctx, "home.example.com.")
//	...
//	err = client.ReplaceA(ctx, "home.example.com.", addr, 60)
//
// ReplaceA deletes the whole A RRset and inserts the new address in one
// UPDATE message, so the server applies both or neither.
//
// # TSIG keys
//
// Generate a key with BIND's tsig-keygen:
//
//	tsig-keygen -a hmac-sha256 dyndns > dyndns.key
//
// Store the secret in Vault and give the key name to dyndns.
package dnsupdate
