package transports

var HTTPEncodeError = httpEncodeError
