// Package downstream calls the HTTP read APIs of the gateway's backing
// services: the document store (login, course and wish reads) and the
// counters service (usage statistics).
//
// Both services answer with JSON envelopes. The document store wraps its
// reply as {"statusCode": 200, "message": ...}; the counters service answers
// with {"isNotFound": bool, "counterValue": n} or, for login counters,
// {"map": {"counters": {...}}}. Non-2xx HTTP responses are errors.
package downstream
