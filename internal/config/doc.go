// Package config defines the sessmesh configuration file, its defaults
// and validation, and converts it into session store options.
//
// Example sessmesh.yaml:
//
//	store:
//	  url: mongodb://db:27017/app
//	  collection: sessions
//	  ttl: 1209600
//	  touch_after: 60
//	eviction:
//	  mode: native
//	crypto:
//	  secret: ${SESSMESH_CRYPTO_SECRET}
//	log:
//	  level: info
//	metrics:
//	  addr: 127.0.0.1:9464
package config
