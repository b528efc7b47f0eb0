package main

type sessionKey string

const slotSessionKey = sessionKey("slot")
