// Package config provides configuration parsing for the ticket panel.
//
// The configuration is stored in senhas.json next to the database. Comments
// and trailing commas are accepted. Every field is optional; missing values
// take the defaults from New.
//
// # Configuration File Structure
//
//	{
//	  // panel server
//	  "server": {"host": "0.0.0.0", "port": 8080, "metrics": true},
//	  "storage": {"driver": "sqlite", "dsn": "senhas.db"},
//	  "bus": {"channel": "fabrica-cultura-sync"},
//	  "logo": {"backend": "dataurl", "maxBytes": 2097152},
//	  "alert": {"dwell": "4s"},
//	  "log": {"level": "info", "format": "text"},
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
