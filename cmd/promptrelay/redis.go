package main

import "net/url"

// redisPassword extracts the password from a redis URL so it can be masked in
// logs. Plain host:port addresses have none.
func redisPassword(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.User == nil {
		return ""
	}
	pw, _ := u.User.Password()
	return pw
}
