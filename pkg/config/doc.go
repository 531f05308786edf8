/*
Package config loads the burrow configuration file.

The file is YAML. Every section is optional and missing keys keep the
values from Default:

	log:
	  level: info            # debug, info, warn, error
	  json: false
	metrics:
	  addr: ""               # e.g. 127.0.0.1:9353 serves /metrics and /health
	storage:
	  data_dir: ""           # bbolt record journal when set
	mdns:
	  entry_limit: 100000
	  transaction_timeout: 3s
	  ipv4: true
	  ipv6: true
	  interfaces: []         # empty means every multicast-capable interface
	dns:
	  nameservers: ["8.8.8.8:53"]
	  pooling: default       # default or null
	  timeout: 5s
	  tcp_fallback: true

Command line flags are applied by the CLI after Load and take
precedence over the file.
*/
package config
